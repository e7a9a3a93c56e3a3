package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"visitor-register-backend/internal/store"
)

// ErrNoValidRows is returned when no row of an import carries both a name
// and an address.
var ErrNoValidRows = errors.New("no valid rows to import")

// Row is one record of a spreadsheet or JSON import, keyed by column header.
type Row map[string]any

// Aliases lists, per target field, the accepted column headers in priority
// order. The first alias is the one written by exports.
var Aliases = struct {
	Name, Address, PhoneNumber, WhomToMeet, Purpose []string
}{
	Name:        []string{"Nama", "nama", "Name", "name"},
	Address:     []string{"Alamat", "alamat", "Address", "address"},
	PhoneNumber: []string{"HP", "hp", "Phone", "phone"},
	WhomToMeet:  []string{"Ketemu", "ketemu", "Meet", "meet"},
	Purpose:     []string{"Tujuan", "tujuan", "Purpose", "purpose"},
}

// Result is the outcome of normalizing a set of rows.
type Result struct {
	Requests []store.CreateRequest
	Skipped  int
}

// Normalize maps loosely-keyed rows onto create requests. Rows missing a
// name or an address are dropped and counted. Any status column is ignored.
func Normalize(rows []Row) (Result, error) {
	res := Result{Requests: make([]store.CreateRequest, 0, len(rows))}
	for _, row := range rows {
		req := store.CreateRequest{
			Name:        pick(row, Aliases.Name),
			Address:     pick(row, Aliases.Address),
			PhoneNumber: pick(row, Aliases.PhoneNumber),
			WhomToMeet:  pick(row, Aliases.WhomToMeet),
			Purpose:     pick(row, Aliases.Purpose),
		}
		if req.Name == "" || req.Address == "" {
			res.Skipped++
			continue
		}
		res.Requests = append(res.Requests, req)
	}
	if len(res.Requests) == 0 {
		return res, ErrNoValidRows
	}
	return res, nil
}

// pick returns the first non-empty value among keys.
func pick(row Row, keys []string) string {
	for _, k := range keys {
		v, ok := row[k]
		if !ok {
			continue
		}
		if s := text(v); s != "" {
			return s
		}
	}
	return ""
}

func text(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	return strings.TrimSpace(s)
}
