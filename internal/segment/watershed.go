package segment

import (
	"image"
)

// inQueue tags pixels waiting in a flood queue.
const inQueue int32 = -2

// floodQueue is a FIFO of pixel indices for one priority level.
type floodQueue struct {
	items []int
	head  int
}

func (q *floodQueue) push(i int) { q.items = append(q.items, i) }

func (q *floodQueue) empty() bool { return q.head >= len(q.items) }

func (q *floodQueue) pop() int {
	i := q.items[q.head]
	q.head++
	if q.head == len(q.items) {
		q.items, q.head = q.items[:0], 0
	}
	return i
}

// Watershed floods img from the seeds in markers and returns a new field.
// Every reached pixel carries its seed label. Ridge pixels between two seeds,
// the one-pixel image frame and unreachable pockets carry LabelBoundary.
// Flooding uses 256 FIFO levels keyed by the largest per-channel intensity
// step, so identical inputs give identical output.
func Watershed(img image.Image, markers *LabelField) (*LabelField, error) {
	if img == nil || markers == nil {
		return nil, invalidInput("watershed", "image and markers are required")
	}
	b := img.Bounds()
	if b.Dx() != markers.W || b.Dy() != markers.H || len(markers.Pix) != markers.W*markers.H {
		return nil, invalidInput("watershed", "image %dx%d does not match markers %dx%d",
			b.Dx(), b.Dy(), markers.W, markers.H)
	}
	out := markers.Clone()
	if markers.W == 0 || markers.H == 0 {
		return out, nil
	}

	w, h := markers.W, markers.H
	ch := planes(img)
	lab := out.Pix

	diff := func(a, c int) int {
		d := 0
		for _, p := range ch {
			v := int(p[a]) - int(p[c])
			if v < 0 {
				v = -v
			}
			if v > d {
				d = v
			}
		}
		return d
	}

	for x := range w {
		lab[x] = LabelBoundary
		lab[(h-1)*w+x] = LabelBoundary
	}
	for y := range h {
		lab[y*w] = LabelBoundary
		lab[y*w+w-1] = LabelBoundary
	}

	var queues [256]floodQueue
	active := 256
	offsets := [4]int{-1, 1, -w, w}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			if lab[i] < 0 {
				lab[i] = LabelUnknown
			}
			if lab[i] != LabelUnknown {
				continue
			}
			t := 256
			for _, o := range offsets {
				if lab[i+o] > 0 {
					t = min(t, diff(i, i+o))
				}
			}
			if t < 256 {
				queues[t].push(i)
				lab[i] = inQueue
				active = min(active, t)
			}
		}
	}

	for active < 256 {
		if queues[active].empty() {
			active++
			continue
		}
		i := queues[active].pop()

		var label int32
		for _, o := range offsets {
			t := lab[i+o]
			if t <= 0 {
				continue
			}
			if label == 0 {
				label = t
			} else if t != label {
				label = LabelBoundary
			}
		}
		lab[i] = label
		if label == LabelBoundary {
			continue
		}

		for _, o := range offsets {
			n := i + o
			if lab[n] != LabelUnknown {
				continue
			}
			t := diff(i, n)
			queues[t].push(n)
			lab[n] = inQueue
			active = min(active, t)
		}
	}

	// Pockets enclosed by ridge pixels are never reached; they are ridges too.
	for i, v := range lab {
		if v == LabelUnknown {
			lab[i] = LabelBoundary
		}
	}
	return out, nil
}
