package runlog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestLines_MergesInGivenOrder(t *testing.T) {
	l := New(nil)

	l.Segment("b").Append("Running: b", "b out")
	l.Preamble("[WARN] early")
	l.Segment("a").Append("Running: a")
	l.Segment("a").Append("a out")

	want := []string{"[WARN] early", "Running: a", "a out", "Running: b", "b out"}
	if diff := cmp.Diff(want, l.Lines([]string{"a", "b", "never-ran"})); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestLines_EmptyLogIsNotNil(t *testing.T) {
	lines := New(nil).Lines(nil)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestObserver(t *testing.T) {
	var got []string
	l := New(func(node, line string) {
		got = append(got, node+"|"+line)
	})

	l.Preamble("p1")
	l.Segment("n").Append("x", "y")

	assert.Equal(t, []string{"|p1", "n|x", "n|y"}, got)
}

func TestConcurrentSegments(t *testing.T) {
	l := New(nil)
	var wg sync.WaitGroup
	order := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("n%02d", i)
		order = append(order, id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			seg := l.Segment(id)
			for j := 0; j < 10; j++ {
				seg.Append(fmt.Sprintf("%s-%d", id, j))
			}
		}()
	}
	wg.Wait()

	lines := l.Lines(order)
	assert.Len(t, lines, 200)
	assert.Equal(t, "n00-0", lines[0])
	assert.Equal(t, "n19-9", lines[199])
}
