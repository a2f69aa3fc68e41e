package models

import (
	"bufio"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray is a []string persisted as a JSON array in a text column.
// Legacy rows holding newline separated text are still readable.
type StringArray []string

// Value implements driver.Valuer. A nil slice is written as "[]".
func (a StringArray) Value() (driver.Value, error) {
	list := []string(a)
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

// Scan implements sql.Scanner.
func (a *StringArray) Scan(src interface{}) error {
	if a == nil {
		return fmt.Errorf("models.StringArray: Scan on nil pointer")
	}
	var text string
	switch v := src.(type) {
	case nil:
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("models.StringArray: cannot scan %T", src)
	}
	*a = parseStringList(text)
	return nil
}

func parseStringList(text string) StringArray {
	text = strings.TrimSpace(text)
	out := StringArray{}
	if text == "" || text == "null" {
		return out
	}
	if strings.HasPrefix(text, "[") {
		var list []string
		if json.Unmarshal([]byte(text), &list) == nil {
			return append(out, list...)
		}
	}
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}
