package guardrail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

func TestValidateSafety(t *testing.T) {
	v := NewOutputValidator(utils.NopLogger())

	assert.True(t, v.ValidateSafety("Step 1: subtract 2 from both sides."))
	assert.False(t, v.ValidateSafety("You could just cheat and copy it"))
	assert.False(t, v.ValidateSafety("This is a SCAM"))
}

func TestValidateAccuracy(t *testing.T) {
	v := NewOutputValidator(utils.NopLogger())

	r := v.ValidateAccuracy("Step 1: let y = x so x = 2")
	assert.True(t, r.Valid())
	assert.InDelta(t, 1.0, r.Confidence(), 1e-9)

	r = v.ValidateAccuracy("The answer is four")
	assert.True(t, r.Valid())
	assert.InDelta(t, 0.6, r.Confidence(), 1e-9)
}

func TestOutputDescriptors_Order(t *testing.T) {
	runner, err := NewRunner(OutputSide, NewOutputValidator(utils.NopLogger()).Descriptors(), utils.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"safety_validator", "accuracy_validator", "format_validator"}, runner.Names())
}

func TestOutputRunner_Actions(t *testing.T) {
	runner, err := NewRunner(OutputSide, NewOutputValidator(utils.NopLogger()).Descriptors(), utils.NopLogger())
	require.NoError(t, err)

	verdicts := runner.Run(context.Background(), "Step 1: x = 2\nFinal Answer: x = 2")
	for _, v := range verdicts {
		assert.True(t, v.Passed, v.Guardrail)
	}
	assert.Equal(t, "Mathematical accuracy check: PASSED", verdicts[1].Message)

	verdicts = runner.Run(context.Background(), "DEBUG: score 0.3\nx = 2")
	assert.Equal(t, ActionModify, verdicts[2].Action)

	verdicts = runner.Run(context.Background(), "a harmful answer")
	assert.Equal(t, ActionBlock, verdicts[0].Action)
}

func TestClean(t *testing.T) {
	in := "DEBUG: internal\nLet   me\tsee\n\n\n\n1 .  first\nMatch score: 0.9\nnote:Then done"
	out := Clean(in)

	assert.NotContains(t, out, "DEBUG")
	assert.NotContains(t, out, "Match score")
	assert.NotContains(t, out, "\n\n\n")
	assert.Contains(t, out, "Let me see")
	assert.Contains(t, out, "1. first")
	assert.Contains(t, out, "note: Then")
	assert.Contains(t, Clean("pi is 3.14"), "3.14")
}

func TestEnsureEducationalFormat(t *testing.T) {
	out := EnsureEducationalFormat("Subtract 3 to get x = 4")
	assert.True(t, strings.HasPrefix(out, "Let me solve this step by step:"))
	assert.Contains(t, out, "**Final Answer:** x = 4")

	already := "Step 1: done.\nFinal Answer: 7"
	assert.Equal(t, already, EnsureEducationalFormat(already))

	therefore := EnsureEducationalFormat("1. Add the numbers. Therefore the sum is 7.")
	assert.Contains(t, therefore, "**Final Answer:** Therefore the sum is 7.")
}

func TestAddStudentFormatting_Idempotent(t *testing.T) {
	once := AddStudentFormatting("so x = 2, and y = 3\n\n\n\nend")
	assert.Contains(t, once, "**x = 2**")
	assert.Contains(t, once, "**y = 3**")
	assert.NotContains(t, once, "\n\n\n")
	assert.Equal(t, once, AddStudentFormatting(once))
}

func TestSimplify(t *testing.T) {
	assert.Equal(t, EmptyOutputMessage, Simplify("   "))

	out := Simplify("Retrieved Answer: 5\nsubtract 1 so x = 5")
	assert.NotContains(t, out, "Retrieved Answer")
	assert.Contains(t, out, "Let me solve this step by step:")
	assert.Contains(t, out, "**x = 5**")
	assert.False(t, NeedsFormatting(out))
}

func TestNeedsFormatting(t *testing.T) {
	assert.True(t, NeedsFormatting("plain words without structure"))
	assert.True(t, NeedsFormatting("Step 1\n\n\n\nStep 2"))
	assert.True(t, NeedsFormatting("Step 1\nMatch score: 0.8"))
	assert.False(t, NeedsFormatting("1. factor\n2. solve"))
	assert.False(t, NeedsFormatting("The answer is 4"))
}

func TestValidateFormat(t *testing.T) {
	v := NewOutputValidator(utils.NopLogger())
	assert.False(t, v.ValidateFormat("DEBUG: raw\nx = 2").valid)
	assert.True(t, v.ValidateFormat("Step 1: subtract 3\nx = 2").valid)
}
