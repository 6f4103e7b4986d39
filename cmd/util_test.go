package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openredress/casetriage/config"
)

func TestParseContextPairs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", nil, nil, false},
		{"single", []string{"region=north"}, map[string]string{"region": "north"}, false},
		{"multiple", []string{"a=1", "b=2"}, map[string]string{"a": "1", "b": "2"}, false},
		{"value with equals", []string{"query=a=b"}, map[string]string{"query": "a=b"}, false},
		{"empty value", []string{"flag="}, map[string]string{"flag": ""}, false},
		{"missing equals", []string{"novalue"}, nil, true},
		{"empty key", []string{"=value"}, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseContextPairs(tc.pairs)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCaseID(t *testing.T) {
	id, err := parseCaseID("7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b")
	require.NoError(t, err)
	assert.Equal(t, "7c2f1a9e-4b3d-4e6f-8a1b-2c3d4e5f6a7b", id.String())

	_, err = parseCaseID("case-42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid case ID")
}

func TestDepsActor(t *testing.T) {
	deps := testDeps()

	assert.Equal(t, "supervisor-3", deps.actor("supervisor-3"))
	assert.Equal(t, "tester", deps.actor(""))

	deps.Config.Actor = ""
	assert.Equal(t, config.DefaultActor, deps.actor(""))
}

func TestDepsResolveFormat(t *testing.T) {
	deps := testDeps()

	assert.Equal(t, config.OutputFormatJSON, deps.resolveFormat("json"))
	assert.Equal(t, config.OutputFormatText, deps.resolveFormat(""))

	deps.Config.OutputFormat = config.OutputFormatYAML
	assert.Equal(t, config.OutputFormatYAML, deps.resolveFormat(""))
}

func TestPrintCase_IncludesEscalationLine(t *testing.T) {
	c := testCase()
	buf := &bytes.Buffer{}
	printCase(buf, c)
	assert.NotContains(t, buf.String(), "Escalated:")

	out := escalatedOutcome()
	buf.Reset()
	printCase(buf, out.Case)
	assert.Contains(t, buf.String(), "Escalated:  by tester")
}

func TestCloseRunsCleanupInReverseOrder(t *testing.T) {
	deps := testDeps()
	var order []int
	deps.cleanup = []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}

	deps.Close()
	assert.Equal(t, []int{2, 1}, order)
	assert.Nil(t, deps.cleanup)
}
