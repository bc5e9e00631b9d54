package load

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Check is a named assertion over one response. Every condition that is set
// must hold for the check to pass.
type Check struct {
	Name string

	Status        []int
	BodyMinLength int

	// JSONPath accepts both $.a.b[0] and gjson's a.b.0 forms.
	JSONPath string
	Exists   bool
	Equals   string

	Contains string
	Schema   string

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// Response is what a check sees of an HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// Label returns Name, or a generated description when Name is empty.
func (c *Check) Label() string {
	if c.Name != "" {
		return c.Name
	}
	var parts []string
	if len(c.Status) > 0 {
		parts = append(parts, fmt.Sprintf("status in %v", c.Status))
	}
	if c.BodyMinLength > 0 {
		parts = append(parts, fmt.Sprintf("body length >= %d", c.BodyMinLength))
	}
	if c.JSONPath != "" {
		switch {
		case c.Equals != "":
			parts = append(parts, fmt.Sprintf("%s == %s", c.JSONPath, c.Equals))
		default:
			parts = append(parts, c.JSONPath+" exists")
		}
	}
	if c.Contains != "" {
		parts = append(parts, fmt.Sprintf("body contains %q", c.Contains))
	}
	if c.Schema != "" {
		parts = append(parts, "body matches schema")
	}
	if len(parts) == 0 {
		return "empty check"
	}
	return strings.Join(parts, " and ")
}

// Compile prepares the JSON schema, if any. Evaluate calls it lazily, so
// calling it up front only moves the error earlier.
func (c *Check) Compile() error {
	c.once.Do(func() {
		if c.Schema == "" {
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", strings.NewReader(c.Schema)); err != nil {
			c.err = fmt.Errorf("invalid schema: %w", err)
			return
		}
		c.compiled, c.err = compiler.Compile("schema.json")
		if c.err != nil {
			c.err = fmt.Errorf("invalid schema: %w", c.err)
		}
	})
	return c.err
}

// Evaluate returns nil when every configured condition holds, otherwise an
// error naming the first one that did not.
func (c *Check) Evaluate(resp Response) error {
	if len(c.Status) > 0 && !slices.Contains(c.Status, resp.StatusCode) {
		return fmt.Errorf("status %d not in %v", resp.StatusCode, c.Status)
	}
	if c.BodyMinLength > 0 && len(resp.Body) < c.BodyMinLength {
		return fmt.Errorf("body length %d < %d", len(resp.Body), c.BodyMinLength)
	}
	if c.JSONPath != "" {
		res := gjson.GetBytes(resp.Body, gjsonPath(c.JSONPath))
		if !res.Exists() {
			if c.Exists || c.Equals != "" {
				return fmt.Errorf("path %s not found", c.JSONPath)
			}
		} else if c.Equals != "" && res.String() != c.Equals {
			return fmt.Errorf("path %s = %q, want %q", c.JSONPath, res.String(), c.Equals)
		}
	}
	if c.Contains != "" && !strings.Contains(string(resp.Body), c.Contains) {
		return fmt.Errorf("body does not contain %q", c.Contains)
	}
	if c.Schema != "" {
		if err := c.Compile(); err != nil {
			return err
		}
		var doc interface{}
		if err := json.Unmarshal(resp.Body, &doc); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		if err := c.compiled.Validate(doc); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

var bracketIndexRe = regexp.MustCompile(`\[(\d+)\]`)

// gjsonPath turns $.items[0].id or $['items'][0] into items.0.id.
func gjsonPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}
	path = strings.NewReplacer(`['`, ".", `']`, "", `["`, ".", `"]`, "").Replace(path)
	path = bracketIndexRe.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(path, ".")
}
