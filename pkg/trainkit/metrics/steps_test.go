package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestStepTable_Resolve(t *testing.T) {
	table := newStepTable()

	assert.Equal(t, 0, table.resolve("loss", nil))
	assert.Equal(t, 1, table.resolve("loss", nil))
	assert.Equal(t, 20, table.resolve("loss", intPtr(20)))
	assert.Equal(t, 21, table.resolve("loss", nil))
	assert.Equal(t, 0, table.resolve("other", nil))

	next, ok := table.next("loss")
	assert.True(t, ok)
	assert.Equal(t, 22, next)
}

func TestStepTable_ResolveGroup(t *testing.T) {
	tests := []struct {
		name     string
		seed     map[string]int
		subTags  []string
		explicit *int
		want     int
		mismatch bool
	}{
		{name: "all new", subTags: []string{"train", "val"}, want: 0},
		{name: "all known and equal", seed: map[string]int{"train": 4, "val": 4}, subTags: []string{"train", "val"}, want: 4},
		{name: "known subset of request", seed: map[string]int{"train": 4}, subTags: []string{"train", "val"}, mismatch: true},
		{name: "known disagree", seed: map[string]int{"train": 4, "val": 2}, subTags: []string{"train", "val"}, mismatch: true},
		{name: "request subset of known", seed: map[string]int{"train": 4, "val": 4}, subTags: []string{"val"}, want: 4},
		{name: "explicit overrides mismatch", seed: map[string]int{"train": 4}, subTags: []string{"train", "val"}, explicit: intPtr(9), want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newStepTable()
			if tt.seed != nil {
				table.grouped["acc"] = tt.seed
			}
			before := map[string]int{}
			for k, v := range tt.seed {
				before[k] = v
			}

			step, err := table.resolveGroup("acc", tt.subTags, tt.explicit)
			if tt.mismatch {
				require.ErrorIs(t, err, ErrStepMismatch)
				if tt.seed == nil {
					assert.Empty(t, table.grouped["acc"])
				} else {
					assert.Equal(t, before, table.grouped["acc"])
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, step)
			for _, sub := range tt.subTags {
				next, ok := table.nextGroup("acc", sub)
				assert.True(t, ok)
				assert.Equal(t, tt.want+1, next)
			}
		})
	}
}

func TestStepMismatchError_Message(t *testing.T) {
	err := &StepMismatchError{Tag: "acc", Steps: map[string]int{"val": 2, "train": 4}, Unknown: []string{"test"}}
	assert.Equal(t, `step mismatch for grouped scalars: tag "acc" has next steps [train=4 val=2] and new sub-tags [test]`, err.Error())
}
