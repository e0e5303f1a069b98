package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func video(id string) Video {
	return Video{Service: "test", ID: id}
}

func TestDequeueNext(t *testing.T) {
	a, b := video("video"), video("video2")

	tests := []struct {
		name        string
		mode        QueueMode
		queue       []Video
		wantCurrent Video
		wantQueue   []Video
		wantAdvance Advance
	}{
		{"manual consumes front", QueueModeManual, []Video{b}, b, []Video{}, AdvanceNext},
		{"vote consumes front", QueueModeVote, []Video{b}, b, []Video{}, AdvanceNext},
		{"loop requeues current", QueueModeLoop, []Video{b}, b, []Video{a}, AdvanceNext},
		{"loop with empty queue", QueueModeLoop, []Video{}, a, []Video{}, AdvanceNone},
		{"dj restarts current", QueueModeDj, []Video{b}, a, []Video{b}, AdvanceRestart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := a
			p := Playlist{Current: &current, Queue: append([]Video{}, tt.queue...)}

			advance := p.DequeueNext(tt.mode)

			assert.Equal(t, tt.wantAdvance, advance)
			require.NotNil(t, p.Current)
			assert.Equal(t, tt.wantCurrent, *p.Current)
			assert.Equal(t, tt.wantQueue, p.Queue)
		})
	}
}

func TestDequeueNextEmptyQueue(t *testing.T) {
	for _, mode := range []QueueMode{QueueModeManual, QueueModeVote} {
		current := video("video")
		p := Playlist{Current: &current}

		p.DequeueNext(mode)

		assert.Nil(t, p.Current, "mode %s", mode)
		assert.Empty(t, p.Queue)
	}
}

func TestPlaylistRemoveAndMove(t *testing.T) {
	p := Playlist{Queue: []Video{video("1"), video("2"), video("3"), video("2")}}

	assert.Equal(t, 2, p.RemoveAll(video("2")))
	assert.Equal(t, []Video{video("1"), video("3")}, p.Queue)

	_, err := p.Remove(video("9"))
	assert.ErrorIs(t, err, ErrVideoNotFound)

	require.NoError(t, p.Append(video("4")))
	assert.ErrorIs(t, p.Append(video("4")), ErrVideoAlreadyQueued)

	require.NoError(t, p.Move(2, 0))
	assert.Equal(t, []Video{video("4"), video("1"), video("3")}, p.Queue)
	assert.ErrorIs(t, p.Move(0, 3), ErrInvalidQueueIndex)
}

func TestPlaylistShuffle(t *testing.T) {
	original := []Video{video("1"), video("2"), video("3"), video("4"), video("5")}

	changed := false
	for i := 0; i < 10 && !changed; i++ {
		p := Playlist{Queue: append([]Video{}, original...)}
		p.Shuffle(nil)

		require.Len(t, p.Queue, len(original))
		assert.ElementsMatch(t, original, p.Queue)
		changed = !assert.ObjectsAreEqual(original, p.Queue)
	}

	assert.True(t, changed, "queue order never changed")
}

func TestPlaylistSortByVotes(t *testing.T) {
	p := Playlist{Queue: []Video{video("1"), video("2"), video("3")}}
	votes := NewVotes()
	votes.Set(video("3").Key(), "a", true)
	votes.Set(video("3").Key(), "b", true)
	votes.Set(video("2").Key(), "a", true)

	p.SortByVotes(votes)

	assert.Equal(t, []Video{video("3"), video("2"), video("1")}, p.Queue)
}

func TestVotes(t *testing.T) {
	votes := NewVotes()
	key := Video{Service: "fakeservice", ID: "abc123"}.Key()

	votes.Set(key, "1234", true)
	votes.Set(key, "1234", true)
	assert.Equal(t, []string{"1234"}, votes.Voters("fakeserviceabc123"))

	votes.Set(key, "1234", false)
	assert.Equal(t, 0, votes.Count(key))

	votes.Set("gone", "1", true)
	votes.Prune(map[string]struct{}{key: {}})
	_, ok := votes["gone"]
	assert.False(t, ok)

	restored := VotesFromLists(map[string][]string{key: {"x", "y"}})
	assert.Equal(t, 2, restored.Count(key))
}
