package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray maps a uuid[] column onto a Go slice. Postgres sends the
// value as an array literal ({a,b,c}); sqlite stores the same literal
// as text, which keeps the repo tests honest.
type UUIDArray []uuid.UUID

func (a UUIDArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	b.WriteByte('}')
	return b.String(), nil
}

func (a *UUIDArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = UUIDArray{}
		return nil
	case string:
		return a.scanLiteral(v)
	case []byte:
		return a.scanLiteral(string(v))
	default:
		return fmt.Errorf("UUIDArray: cannot scan %T", src)
	}
}

func (a *UUIDArray) scanLiteral(literal string) error {
	body := strings.TrimSpace(literal)
	body = strings.TrimPrefix(body, "{")
	body = strings.TrimSuffix(body, "}")
	if strings.TrimSpace(body) == "" {
		*a = UUIDArray{}
		return nil
	}

	elems := strings.Split(body, ",")
	ids := make([]uuid.UUID, 0, len(elems))
	for _, elem := range elems {
		id, err := uuid.Parse(strings.TrimSpace(strings.Trim(elem, `"`)))
		if err != nil {
			return fmt.Errorf("UUIDArray: element %q: %w", elem, err)
		}
		ids = append(ids, id)
	}
	*a = ids
	return nil
}
