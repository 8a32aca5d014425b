package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineWordsAndNumbers(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		typ    byte
		number int
		params map[byte]float64
	}{
		{"G0 move", "G0 X10 Y20", 'G', 0, map[byte]float64{'X': 10, 'Y': 20}},
		{"G1 with feed rate", "G1 X100.5 Y200.25 F3000", 'G', 1, map[byte]float64{'X': 100.5, 'Y': 200.25, 'F': 3000}},
		{"bare G28 has no parameters", "G28", 'G', 28, map[byte]float64{}},
		{"M-command", "M104 S200", 'M', 104, map[byte]float64{'S': 200}},
		{"G92 set position", "G92 X0 Y0 Z0", 'G', 92, map[byte]float64{'X': 0, 'Y': 0, 'Z': 0}},
		{"lowercase letters normalize to upper", "g1 x10 y20", 'G', 1, map[byte]float64{'X': 10, 'Y': 20}},
		{"negative parameters", "G1 X-10.5 Y-20", 'G', 1, map[byte]float64{'X': -10.5, 'Y': -20}},
	}

	parser := NewParser()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := parser.ParseLine(tc.input)
			require.NoError(t, err)
			require.NotNil(t, cmd)
			assert.Equal(t, tc.typ, cmd.Type)
			assert.Equal(t, tc.number, cmd.Number)
			for param, value := range tc.params {
				require.True(t, cmd.HasParameter(param), "missing parameter %c", param)
				assert.Equal(t, value, cmd.GetParameter(param, 0))
			}
		})
	}
}

// Serial G-code senders prefix each line with "N<seq>" and suffix it with
// "*<checksum>"; both must be stripped without disturbing the command
// itself, and without the parser attempting to verify the checksum.
func TestParseLineStripsLineNumberAndChecksum(t *testing.T) {
	parser := NewParser()

	cmd, err := parser.ParseLine("N12 G1 X10 Y20 F1500*37")
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, byte('G'), cmd.Type)
	assert.Equal(t, 1, cmd.Number)
	assert.Equal(t, 10.0, cmd.GetParameter('X', 0))
	assert.Equal(t, 20.0, cmd.GetParameter('Y', 0))
	assert.Equal(t, 1500.0, cmd.GetParameter('F', 0))
}

func TestParseLineBareLineNumberIsBlank(t *testing.T) {
	parser := NewParser()

	cmd, err := parser.ParseLine("N5")
	require.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestParseLineComments(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name    string
		input   string
		comment string
	}{
		{"bare semicolon comment", "; This is a comment", "; This is a comment"},
		{"trailing comment after a move", "G0 X10 ; Move to X10", "; Move to X10"},
		{"parenthesized comment", "(This is a comment)", "(This is a comment)"},
	}

	for _, test := range tests {
		cmd, err := parser.ParseLine(test.input)
		require.NoError(t, err)
		require.NotNil(t, cmd)
		assert.Equal(t, test.comment, cmd.Comment)
	}
}

func TestParseLineEmptyIsNil(t *testing.T) {
	parser := NewParser()

	cmd, err := parser.ParseLine("")
	require.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestParseLineUnknownLetterIsSkipped(t *testing.T) {
	parser := NewParser()

	// a stray non-parameter token between two real words should not break
	// parsing of what follows it
	cmd, err := parser.ParseLine("G1 @ X10")
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, 10.0, cmd.GetParameter('X', 0))
}
