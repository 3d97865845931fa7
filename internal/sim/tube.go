package sim

import (
	"bridgesim/server/internal/geom"
	"bridgesim/server/internal/template"
)

// TubeState is the launcher cycle: Empty -> Reloading -> Ready -> Empty.
type TubeState string

const (
	TubeEmpty     TubeState = "Empty"
	TubeReloading TubeState = "Reloading"
	TubeReady     TubeState = "Ready"
)

// TubeHandler drives one torpedo tube.
type TubeHandler struct {
	tube     template.Tube
	state    TubeState
	progress float64
}

func NewTubeHandler(tube template.Tube) *TubeHandler {
	return &TubeHandler{tube: tube, state: TubeEmpty}
}

func (h *TubeHandler) State() TubeState { return h.state }

func (h *TubeHandler) Progress() float64 { return h.progress }

func (h *TubeHandler) Update(t *GameTime, boost float64) {
	if h.state != TubeReloading {
		return
	}
	h.progress = geom.Clamp(h.progress+h.tube.ReloadSpeed*boost*t.Delta, 0, 1)
	if h.progress >= 1 {
		h.state = TubeReady
		h.progress = 0
	}
}

// TubeHandlerContainer owns the tubes and the shared magazine. Magazine
// capacity is consumed when a reload starts.
type TubeHandlerContainer struct {
	tubes       []*TubeHandler
	magazine    int
	magazineMax int
	launches    []int
}

func NewTubeHandlerContainer(tubes []template.Tube, magazine int) *TubeHandlerContainer {
	handlers := make([]*TubeHandler, 0, len(tubes))
	for _, tube := range tubes {
		handlers = append(handlers, NewTubeHandler(tube))
	}
	return &TubeHandlerContainer{tubes: handlers, magazine: magazine, magazineMax: magazine}
}

func (c *TubeHandlerContainer) Tubes() []*TubeHandler { return c.tubes }

func (c *TubeHandlerContainer) Magazine() int { return c.magazine }

func (c *TubeHandlerContainer) MagazineMax() int { return c.magazineMax }

// StartReload begins reloading an empty tube if the magazine has a torpedo.
func (c *TubeHandlerContainer) StartReload(index int) bool {
	tube, ok := c.tube(index)
	if !ok || tube.state != TubeEmpty || c.magazine <= 0 {
		return false
	}
	c.magazine--
	tube.state = TubeReloading
	tube.progress = 0
	return true
}

// Launch fires a ready tube. The torpedo itself is spawned at end of tick
// from PendingLaunches.
func (c *TubeHandlerContainer) Launch(index int) bool {
	tube, ok := c.tube(index)
	if !ok || tube.state != TubeReady {
		return false
	}
	tube.state = TubeEmpty
	c.launches = append(c.launches, index)
	return true
}

// PendingLaunches returns and clears the tubes launched since the last call.
func (c *TubeHandlerContainer) PendingLaunches() []int {
	launches := c.launches
	c.launches = nil
	return launches
}

func (c *TubeHandlerContainer) Update(t *GameTime, boost float64) {
	for _, tube := range c.tubes {
		tube.Update(t, boost)
	}
}

func (c *TubeHandlerContainer) tube(index int) (*TubeHandler, bool) {
	if index < 0 || index >= len(c.tubes) {
		return nil, false
	}
	return c.tubes[index], true
}
