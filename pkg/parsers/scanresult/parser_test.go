package scanresult

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"results.json", FormatJSON, false},
		{"RESULTS.JSON", FormatJSON, false},
		{"nuclei.jsonl", FormatJSONL, false},
		{"report.sarif", "", true},
		{"results.json.gz", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedFormat))
				assert.True(t, shared.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSON_Array(t *testing.T) {
	p := NewParser(nil)

	records, lineErrs, err := p.ParseJSON([]byte(`[{"host":"a"},{"host":"b"}, 42]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, "b", records[1].Fields["host"])

	require.Len(t, lineErrs, 1)
	assert.Equal(t, 3, lineErrs[0].Line)
	assert.ErrorIs(t, lineErrs[0], ErrNotObject)
}

func TestParseJSON_SingleObjectCoerced(t *testing.T) {
	p := NewParser(nil)

	records, lineErrs, err := p.ParseJSON([]byte(`  {"host":"a","info":{"severity":"high"}} `))
	require.NoError(t, err)
	assert.Empty(t, lineErrs)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Fields["host"])
}

func TestParseJSON_MalformedFailsWholeBatch(t *testing.T) {
	p := NewParser(nil)

	for _, doc := range []string{`[{"host":"a"},`, `{"host":`, ``, `   `} {
		records, _, err := p.ParseJSON([]byte(doc))
		assert.ErrorIs(t, err, ErrParse, "doc=%q", doc)
		assert.Nil(t, records)
	}
}

func TestParseJSON_MaxRecords(t *testing.T) {
	p := NewParser(&Options{MaxRecords: 1})

	_, _, err := p.ParseJSON([]byte(`[{},{}]`))
	assert.ErrorIs(t, err, ErrTooManyRecords)
}

func TestParseJSONL_OneMalformedLine(t *testing.T) {
	p := NewParser(nil)
	input := strings.Join([]string{
		`{"host":"h1","template-id":"a"}`,
		`{"host":"h2","template-id":"b"`,
		``,
		`{"host":"h3","template-id":"c"}`,
		`   `,
		`{"host":"h4","template-id":"d"}`,
	}, "\n")

	records, lineErrs, err := p.ParseJSONL(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, records, 3)
	require.Len(t, lineErrs, 1)
	assert.Equal(t, 2, lineErrs[0].Line)
	assert.ErrorIs(t, lineErrs[0], ErrParse)
	assert.Equal(t, []int{1, 4, 6}, []int{records[0].Line, records[1].Line, records[2].Line})
}

func TestParseJSONL_CRLFAndNoTrailingNewline(t *testing.T) {
	p := NewParser(nil)

	records, lineErrs, err := p.ParseJSONL(strings.NewReader("{\"host\":\"a\"}\r\n{\"host\":\"b\"}"))
	require.NoError(t, err)
	assert.Empty(t, lineErrs)
	assert.Len(t, records, 2)
}

func TestParseJSONL_LineRules(t *testing.T) {
	p := NewParser(&Options{MaxLineBytes: 20})
	input := "[1,2]\n{\"host\":\"a\"} {\"host\":\"b\"}\n{\"host\":\"a-very-long-hostname\"}\n{\"h\":1}\n"

	records, lineErrs, err := p.ParseJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].Line)

	require.Len(t, lineErrs, 3)
	assert.ErrorIs(t, lineErrs[0], ErrNotObject)
	assert.ErrorIs(t, lineErrs[1], ErrLineTooLong)
	assert.ErrorIs(t, lineErrs[2], ErrLineTooLong)
}

func TestParse_Dispatch(t *testing.T) {
	p := NewParser(nil)

	records, _, err := p.Parse(FormatJSONL, []byte("{\"a\":1}\n{\"b\":2}\n"))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, _, err = p.Parse(Format("xml"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParse_LeadingByteOrderMark(t *testing.T) {
	p := NewParser(nil)

	records, lineErrs, err := p.ParseJSON([]byte("\xef\xbb\xbf[{\"host\":\"h1\"},{\"host\":\"h2\"}]"))
	require.NoError(t, err)
	assert.Empty(t, lineErrs)
	assert.Len(t, records, 2)

	records, lineErrs, err = p.ParseJSONL(strings.NewReader("\xef\xbb\xbf{\"host\":\"h1\"}\n{\"host\":\"h2\"}\n"))
	require.NoError(t, err)
	assert.Empty(t, lineErrs)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, "h1", records[0].Fields["host"])
}
