// Package models defines core data structures for inventories and commands.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// maxQuantity is the largest quantity Add produces and UnmarshalJSON accepts.
const maxQuantity = math.MaxInt

// ItemCount is one item line of a user's inventory.
type ItemCount struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// userItems keeps the items of one user in first-seen order.
type userItems struct {
	order []string
	qty   map[string]int
}

// Inventory maps user id -> item name -> quantity. Users and items keep their
// first-seen order, which is also the rendering order. Every stored quantity
// is at least 1.
//
// Inventory is not safe for concurrent use; callers serialize access.
type Inventory struct {
	users  []string
	byUser map[string]*userItems

	// Dropped counts entries discarded by UnmarshalJSON because their value
	// was not a positive integer.
	Dropped int
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{byUser: make(map[string]*userItems)}
}

func (inv *Inventory) user(userID string, create bool) *userItems {
	if inv.byUser == nil {
		inv.byUser = make(map[string]*userItems)
	}
	u, ok := inv.byUser[userID]
	if !ok && create {
		u = &userItems{qty: make(map[string]int)}
		inv.byUser[userID] = u
		inv.users = append(inv.users, userID)
	}
	return u
}

// Add increments item for userID, starting at 1 when absent, and returns the new
// quantity. The quantity saturates at maxQuantity.
func (inv *Inventory) Add(userID, item string) int {
	u := inv.user(userID, true)
	q, ok := u.qty[item]
	if !ok {
		u.order = append(u.order, item)
	}
	if q < maxQuantity {
		q++
	}
	u.qty[item] = q
	return q
}

// Set stores qty for item. Quantities below 1 are rejected.
func (inv *Inventory) Set(userID, item string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity for %q must be positive, got %d", item, qty)
	}
	u := inv.user(userID, true)
	if _, ok := u.qty[item]; !ok {
		u.order = append(u.order, item)
	}
	u.qty[item] = qty
	return nil
}

// Quantity returns the stored quantity of item for userID.
func (inv *Inventory) Quantity(userID, item string) (int, bool) {
	u := inv.user(userID, false)
	if u == nil {
		return 0, false
	}
	q, ok := u.qty[item]
	return q, ok
}

// Items returns the items of userID in first-seen order. Nil when the user has none.
func (inv *Inventory) Items(userID string) []ItemCount {
	u := inv.user(userID, false)
	if u == nil || len(u.order) == 0 {
		return nil
	}
	out := make([]ItemCount, 0, len(u.order))
	for _, name := range u.order {
		out = append(out, ItemCount{Item: name, Quantity: u.qty[name]})
	}
	return out
}

// Users returns the user ids in first-seen order.
func (inv *Inventory) Users() []string {
	return append([]string(nil), inv.users...)
}

// Len returns the number of users.
func (inv *Inventory) Len() int {
	return len(inv.users)
}

// Clone returns a deep copy.
func (inv *Inventory) Clone() *Inventory {
	out := NewInventory()
	for _, userID := range inv.users {
		src := inv.byUser[userID]
		dst := out.user(userID, true)
		dst.order = append(dst.order, src.order...)
		for k, v := range src.qty {
			dst.qty[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the inventory as a nested object, preserving order.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, userID := range inv.users {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, userID); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		u := inv.byUser[userID]
		for j, item := range u.order {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, item); err != nil {
				return nil, err
			}
			fmt.Fprintf(&buf, "%d", u.qty[item])
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

// UnmarshalJSON decodes a nested object, preserving key order. Item values
// that are not positive integral numbers are dropped and counted in Dropped;
// a user whose value is not an object is dropped as a whole.
func (inv *Inventory) UnmarshalJSON(data []byte) error {
	fresh := NewInventory()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		userID, err := readKey(dec)
		if err != nil {
			return err
		}
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			if err := skipValue(dec, tok); err != nil {
				return err
			}
			fresh.Dropped++
			continue
		}
		fresh.user(userID, true)
		for dec.More() {
			item, err := readKey(dec)
			if err != nil {
				return err
			}
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			qty, ok := positiveInt(tok)
			if !ok {
				if err := skipValue(dec, tok); err != nil {
					return err
				}
				fresh.Dropped++
				continue
			}
			_ = fresh.Set(userID, item, qty)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	if _, err := dec.Token(); err == nil {
		return fmt.Errorf("unexpected data after inventory object")
	}
	*inv = *fresh
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// skipValue consumes the rest of a value whose first token was already read.
func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

func positiveInt(tok json.Token) (int, bool) {
	n, ok := tok.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		if i < 1 || i > maxQuantity {
			return 0, false
		}
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil || f < 1 || f >= maxQuantity || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
