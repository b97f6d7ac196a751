package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relalg/internal/data"
	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/schema"
	"github.com/roach88/relalg/internal/testutil"
)

// mixedRelation has one attribute per printable domain plus an anonymous
// projection column.
func mixedRelation() *data.SimpleRelation {
	rs := schema.MustRelationSchema("mixed",
		schema.Attr("flag", ir.DomainBoolean),
		schema.Attr("b", ir.DomainByte),
		schema.Attr("ratio", ir.DomainFloat),
		schema.Attr("c", ir.DomainChar),
		schema.Attr("blob", ir.DomainBinary),
		schema.Anonymous(ir.DomainString),
	)
	return data.MustFromRows(rs,
		testutil.Row(ir.Boolean(true), ir.Byte(7), ir.Float(0.5), ir.Char('é'), ir.Binary{0xca, 0xfe}, ir.String("a b")),
	)
}

func TestRelationViewCells(t *testing.T) {
	view := NewRelationView(mixedRelation())

	assert.Equal(t, "mixed", view.Name)
	assert.Equal(t, []AttributeView{
		{Name: "flag", Domain: "boolean"},
		{Name: "b", Domain: "byte"},
		{Name: "ratio", Domain: "float"},
		{Name: "c", Domain: "char"},
		{Name: "blob", Domain: "binary"},
		{Name: "", Domain: "string"},
	}, view.Attributes)
	// Cells are unquoted: bytes in decimal, binary as bare hex.
	assert.Equal(t, [][]string{{"true", "7", "0.5", "é", "cafe", "a b"}}, view.Rows)
	assert.Equal(t, []string{"flag", "b", "ratio", "c", "blob", "#5"}, view.header())
}

func TestRelationViewKeepsIterationOrder(t *testing.T) {
	rs := schema.MustRelationSchema("n", schema.Attr("n", ir.DomainInteger))
	rel := data.MustFromRows(rs,
		testutil.Row(ir.Integer(3)),
		testutil.Row(ir.Integer(1)),
		testutil.Row(ir.Integer(2)),
	)

	assert.Equal(t, [][]string{{"3"}, {"1"}, {"2"}}, NewRelationView(rel).Rows)
}

func TestRelationViewEmpty(t *testing.T) {
	view := NewRelationView(data.NewRelation(testutil.PeopleSchema()))

	assert.NotNil(t, view.Rows)
	assert.Empty(t, view.Rows)

	out, err := json.Marshal(view)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"people","attributes":[{"name":"id","domain":"integer"},{"name":"name","domain":"string"}],"rows":[]}`, string(out))
}

func TestOutputFormatter_Relation(t *testing.T) {
	testCases := []struct {
		name   string
		format string
		rel    data.Relation
		want   string
	}{
		{
			name:   "text people",
			format: "text",
			rel:    testutil.People(),
			want:   "id\tname\n1\tAnn\n2\tBob\n(2 tuples)\n",
		},
		{
			name:   "text empty",
			format: "text",
			rel:    data.NewRelation(testutil.VisitsSchema()),
			want:   "id\tplace\n(0 tuples)\n",
		},
		{
			name:   "unknown format falls back to text",
			format: "yaml",
			rel:    testutil.Visits(),
			want:   "id\tplace\n1\tParis\n2\tRome\n(2 tuples)\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: tc.format, Writer: buf}

			require.NoError(t, f.Relation(tc.rel, ""))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestOutputFormatter_RelationTable(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "table", Writer: buf}

	require.NoError(t, f.Relation(mixedRelation(), ""))
	out := buf.String()
	for _, want := range []string{"┌", "└", "FLAG", "RATIO", "#5", "cafe", "a b", "(1 tuples)"} {
		assert.Contains(t, out, want)
	}
}

func TestOutputFormatter_RelationJSON(t *testing.T) {
	testCases := []struct {
		name      string
		runID     string
		wantRunID bool
	}{
		{"with run id", "run-1", true},
		{"without run id", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: buf}
			require.NoError(t, f.Relation(testutil.People(), tc.runID))

			var raw map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
			_, hasRunID := raw["run_id"]
			assert.Equal(t, tc.wantRunID, hasRunID)

			var view RelationView
			require.NoError(t, json.Unmarshal(raw["data"], &view))
			assert.Equal(t, NewRelationView(testutil.People()), view)
		})
	}
}

func TestOutputFormatter_Messages(t *testing.T) {
	testCases := []struct {
		name    string
		format  string
		verbose bool
		write   func(f *OutputFormatter) error
		check   func(t *testing.T, out string)
	}{
		{
			name:   "json success",
			format: "json",
			write:  func(f *OutputFormatter) error { return f.Success(map[string]int{"relations": 2}) },
			check: func(t *testing.T, out string) {
				assert.JSONEq(t, `{"status":"ok","data":{"relations":2}}`, out)
			},
		},
		{
			name:   "json error with details",
			format: "json",
			write: func(f *OutputFormatter) error {
				return f.Error("E202", "relation nobody does not exist", map[string]string{"relation": "nobody"})
			},
			check: func(t *testing.T, out string) {
				assert.JSONEq(t, `{"status":"error","error":{"code":"E202","message":"relation nobody does not exist","details":{"relation":"nobody"}}}`, out)
			},
		},
		{
			name:   "text success",
			format: "text",
			write:  func(f *OutputFormatter) error { return f.Success("✓ Schema valid") },
			check: func(t *testing.T, out string) {
				assert.Equal(t, "✓ Schema valid\n", out)
			},
		},
		{
			name:   "text error hides details",
			format: "text",
			write:  func(f *OutputFormatter) error { return f.Error("E205", "arity mismatch", []string{"lhs 2", "rhs 1"}) },
			check: func(t *testing.T, out string) {
				assert.Equal(t, "Error [E205]: arity mismatch\n", out)
			},
		},
		{
			name:    "verbose text error shows details",
			format:  "text",
			verbose: true,
			write:   func(f *OutputFormatter) error { return f.Error("E205", "arity mismatch", []string{"lhs 2", "rhs 1"}) },
			check: func(t *testing.T, out string) {
				assert.Equal(t, "Error [E205]: arity mismatch\nDetails: [lhs 2 rhs 1]\n", out)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: tc.format, Writer: buf, Verbose: tc.verbose}

			require.NoError(t, tc.write(f))
			tc.check(t, buf.String())
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	testCases := []struct {
		name       string
		verbose    bool
		errWriter  bool
		wantOut    string
		wantErrOut string
	}{
		{"disabled", false, false, "", ""},
		{"enabled without err writer", true, false, "loading people.cue\n", ""},
		{"enabled with err writer", true, true, "", "loading people.cue\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: out, Verbose: tc.verbose}
			if tc.errWriter {
				f.ErrWriter = errOut
			}

			f.VerboseLog("loading %s", "people.cue")
			assert.Equal(t, tc.wantOut, out.String())
			assert.Equal(t, tc.wantErrOut, errOut.String())
			if tc.errWriter {
				assert.Same(t, errOut, f.GetErrWriter())
			} else {
				assert.Same(t, out, f.GetErrWriter())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := WrapExitError(ExitFailure, "evaluation failed", ir.NewRelationDoesNotExistError("nobody"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.True(t, ir.IsRelationDoesNotExist(wrapped))
	assert.Equal(t, "evaluation failed: "+ir.NewRelationDoesNotExistError("nobody").Error(), wrapped.Error())
}
