package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"visitor-register-backend/internal/store"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		rows     []Row
		expected []store.CreateRequest
		skipped  int
		wantErr  error
	}{
		{
			name: "Indonesian headers",
			rows: []Row{{"Nama": "Alice", "Alamat": "123 Rd", "HP": "0812", "Ketemu": "Bob", "Tujuan": "Meeting"}},
			expected: []store.CreateRequest{
				{Name: "Alice", Address: "123 Rd", PhoneNumber: "0812", WhomToMeet: "Bob", Purpose: "Meeting"},
			},
		},
		{
			name: "English lowercase headers",
			rows: []Row{{"name": "Alice", "address": "123 Rd", "phone": "0812", "meet": "Bob", "purpose": "Meeting"}},
			expected: []store.CreateRequest{
				{Name: "Alice", Address: "123 Rd", PhoneNumber: "0812", WhomToMeet: "Bob", Purpose: "Meeting"},
			},
		},
		{
			name:     "First non-empty alias wins",
			rows:     []Row{{"Nama": "  ", "nama": "Alice", "Name": "Other", "Address": "9 Lane"}},
			expected: []store.CreateRequest{{Name: "Alice", Address: "9 Lane"}},
		},
		{
			name: "Row missing address is dropped",
			rows: []Row{
				{"Nama": "Alice", "Alamat": "123 Rd"},
				{"Nama": "Bob"},
			},
			expected: []store.CreateRequest{{Name: "Alice", Address: "123 Rd"}},
			skipped:  1,
		},
		{
			name:     "Numbers are coerced to text",
			rows:     []Row{{"name": "Alice", "address": "123 Rd", "phone": float64(81234567890), "purpose": true}},
			expected: []store.CreateRequest{{Name: "Alice", Address: "123 Rd", PhoneNumber: "81234567890", Purpose: "true"}},
		},
		{
			name:     "Status column is ignored",
			rows:     []Row{{"name": "Alice", "address": "123 Rd", "status": "exited"}},
			expected: []store.CreateRequest{{Name: "Alice", Address: "123 Rd"}},
		},
		{
			name:     "Nil values count as empty",
			rows:     []Row{{"name": nil, "address": "123 Rd"}},
			expected: []store.CreateRequest{},
			skipped:  1,
			wantErr:  ErrNoValidRows,
		},
		{
			name:     "No rows",
			rows:     nil,
			expected: []store.CreateRequest{},
			wantErr:  ErrNoValidRows,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Normalize(tc.rows)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expected, res.Requests)
			assert.Equal(t, tc.skipped, res.Skipped)
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffNama,Alamat,HP\nAlice,123 Rd,0812\n,,\nBob,9 Lane\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"Nama": "Alice", "Alamat": "123 Rd", "HP": "0812"}, rows[0])
	assert.Equal(t, Row{"Nama": "Bob", "Alamat": "9 Lane"}, rows[1])
}

func TestReadJSON(t *testing.T) {
	rows, err := ReadJSON(strings.NewReader(`[{"name":"Alice","address":"123 Rd","phone":812}]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	res, err := Normalize(rows)
	require.NoError(t, err)
	assert.Equal(t, "812", res.Requests[0].PhoneNumber)

	_, err = ReadJSON(strings.NewReader(`{"name":"x"}`))
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Nama", "Alamat", "Ketemu"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Alice", "123 Rd", "Bob"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Carol"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := Read("visitors.XLSX", &buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	res, err := Normalize(rows)
	require.NoError(t, err)
	assert.Equal(t, []store.CreateRequest{{Name: "Alice", Address: "123 Rd", WhomToMeet: "Bob"}}, res.Requests)
	assert.Equal(t, 1, res.Skipped)
}

func TestRead_UnsupportedFormat(t *testing.T) {
	_, err := Read("visitors.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
