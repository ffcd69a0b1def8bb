package session

// correlations is the registration table for hover bindings of the render
// currently on screen. Every binding goes in through add and out through
// releaseAll; nothing else holds a disposer.
type correlations map[string][]func()

func (c correlations) add(pairID string, dispose func()) {
	if dispose == nil {
		dispose = func() {}
	}
	c[pairID] = append(c[pairID], dispose)
}

// bind registers one binding per pair of a render.
func (c correlations) bind(v View, pairs []string) {
	for _, p := range pairs {
		c.add(p, v.Correlate(p))
	}
}

func (c correlations) has(pairID string) bool {
	return len(c[pairID]) > 0
}

// releaseAll runs and forgets every disposer.
func (c correlations) releaseAll() {
	for id, ds := range c {
		for _, d := range ds {
			d()
		}
		delete(c, id)
	}
}

func (c correlations) count() int {
	n := 0
	for _, ds := range c {
		n += len(ds)
	}
	return n
}
