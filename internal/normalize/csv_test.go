package normalize

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("\ufeffDate , Revenue\n2024-01-01, 10\n2024-01-02,\"1,200\"\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Revenue"}, table.Columns)
	assert.Equal(t, [][]string{{"2024-01-01", "10"}, {"2024-01-02", "1,200"}}, table.Rows)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "header only", input: "ds,y\n"},
		{name: "ragged", input: "ds,y\n2024-01-01,1,extra\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.IsSchemaError(err))
		})
	}
}

func TestReadCSVHeaderOnlyIsEmptyTable(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("unknown_col\n"))
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))
	assert.Equal(t, "table has no rows", err.Error())
}

func TestWriteCSV(t *testing.T) {
	table := models.NewTable([]string{"timestamp", "value"}, [][]string{{"2024-01-01", "1.5"}})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.Equal(t, "timestamp,value\n2024-01-01,1.5\n", buf.String())

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, table, back)
}
