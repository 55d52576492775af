package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCSVDecoder(t *testing.T) {
	input := "Class,Section,Roll No,Current Month Total,Pending Due,Advance\n3,A,12,1500,200,0\n5,B\n"
	tbl, err := (&CSVDecoder{}).Decode(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, tbl.Header, 6)
	require.Len(t, tbl.Rows, 2)
	assert.Len(t, tbl.Rows[1], 2, "ragged rows are allowed")

	rows, err := NormalizeTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, "12", rows[0].Roll)
}

func TestCSVDecoder_Empty(t *testing.T) {
	tbl, err := (&CSVDecoder{}).Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, tbl.Header)

	_, err = NormalizeTable(tbl)
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func xlsxFixture(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestXLSXDecoder(t *testing.T) {
	data := xlsxFixture(t, [][]any{
		{"ROLL NO", "class", "Section", "Advance", "Pending Due", "Current Month Total"},
		{12, 3, "a", 0, 200, 1500},
		{"007", "LKG", "B", 50, 0, 900},
	})

	tbl, err := (&XLSXDecoder{}).Decode(bytes.NewReader(data))
	require.NoError(t, err)

	rows, err := NormalizeTable(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "3", rows[0].Class)
	assert.Equal(t, "12", rows[0].Roll)
	assert.Equal(t, "1500", rows[0].CurrentMonthTotal)
	assert.Equal(t, "007", rows[1].Roll)
	assert.Equal(t, 3, rows[1].Row)
}

func TestXLSXDecoder_NotAWorkbook(t *testing.T) {
	_, err := (&XLSXDecoder{}).Decode(strings.NewReader("plain text"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("CSV"))
	assert.NotNil(t, r.Get("xlsx"))
	assert.Nil(t, r.Get("ods"))

	d, err := r.ForFile("Opening Balances.XLSX")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", d.Format())

	_, err = r.ForFile("notes.txt")
	assert.Error(t, err)

	assert.Panics(t, func() { r.Register(&CSVDecoder{}) })
}

func TestRegistry_DecodeBytes(t *testing.T) {
	tbl, err := DefaultRegistry().DecodeBytes("a.csv", []byte("Class\n3\n"))
	require.NoError(t, err)
	assert.Equal(t, []any{"Class"}, tbl.Header)
}
