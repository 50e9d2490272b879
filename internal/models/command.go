package models

import (
	"fmt"
	"strings"
)

// Command is one inbound slash-command event, as delivered by the chat gateway.
type Command struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params,omitempty"`
	UserID string                 `json:"user_id"`
}

// Validate normalizes the command name and checks the caller identity is present.
func (c *Command) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("command %q has no caller identity", c.Name)
	}
	if c.Params == nil {
		c.Params = map[string]interface{}{}
	}
	return nil
}

// StringParam returns the named parameter when it is a string.
func (c *Command) StringParam(name string) (value string, present bool, isString bool) {
	v, ok := c.Params[name]
	if !ok || v == nil {
		return "", false, false
	}
	s, ok := v.(string)
	return s, true, ok
}
