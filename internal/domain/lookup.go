package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Lookup is a backend lookup-table value that arrives either as a bare code
// ("UMUM") or as an object ({"code":"TETAP","name":"Tetap","canBon":true}).
// Code is always populated; Raw keeps the original bytes.
type Lookup struct {
	Code   string
	Name   string
	CanBon *bool
	Raw    json.RawMessage
}

// Code builds a Lookup from a bare code.
func Code(code string) Lookup {
	return Lookup{Code: code}
}

// IsObject reports whether the backend sent the object form.
func (l Lookup) IsObject() bool {
	trimmed := bytes.TrimSpace(l.Raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (l Lookup) String() string {
	return l.Code
}

func (l *Lookup) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*l = Lookup{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	l.Raw = append(json.RawMessage(nil), trimmed...)

	switch trimmed[0] {
	case '"':
		var code string
		if err := json.Unmarshal(trimmed, &code); err != nil {
			return err
		}
		l.Code = strings.TrimSpace(code)
		return nil
	case '{':
		var obj struct {
			Code   string `json:"code"`
			Name   string `json:"name"`
			CanBon *bool  `json:"canBon"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		l.Code = strings.TrimSpace(obj.Code)
		l.Name = obj.Name
		l.CanBon = obj.CanBon
		return nil
	default:
		return fmt.Errorf("lookup: unexpected JSON %s", string(trimmed))
	}
}

func (l Lookup) MarshalJSON() ([]byte, error) {
	if len(l.Raw) > 0 {
		return l.Raw, nil
	}
	if l.Name == "" && l.CanBon == nil {
		return json.Marshal(l.Code)
	}
	obj := struct {
		Code   string `json:"code"`
		Name   string `json:"name,omitempty"`
		CanBon *bool  `json:"canBon,omitempty"`
	}{l.Code, l.Name, l.CanBon}
	return json.Marshal(obj)
}
