package rig

import (
	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

// parent attaches every categorised entity to its target. Root components
// hang their kinematic entities under the top group, children hang
// forward-kinematic entities under their parent plug and inverse-kinematic
// entities under the master plug. A child added without a plug hangs its
// forward-kinematic entities under the top group. Do-not-touch entities always go to the
// do-not-touch group. Unresolved targets are recorded as warnings.
func (a *Assembly) parent() error {
	a.warnings = nil
	master, masterOK := a.masterEntity()
	return a.walk(a.roots, 0, func(n *node, _ int) error {
		w := n.widget
		for _, plug := range w.Plugs() {
			if _, ok := w.Plug(plug); !ok {
				a.warn(Warning{Component: w.ID(), Plug: plug, Reason: "plug not populated"})
			}
		}

		fkTarget, fkOK := a.top, true
		ikTarget, ikOK := a.top, true
		fkPlug, ikPlug := "", ""
		if n.parent != nil {
			if n.plug != "" {
				fkPlug = n.plug
				fkTarget, fkOK = n.parent.widget.Plug(n.plug)
			}
			_, ikPlug, _ = a.Master()
			ikTarget, ikOK = master, masterOK
		}

		if err := a.attach(w, widget.CategoryFK, fkTarget, fkOK, fkPlug); err != nil {
			return err
		}
		if err := a.attach(w, widget.CategoryIK, ikTarget, ikOK, ikPlug); err != nil {
			return err
		}
		return a.attach(w, widget.CategoryDoNotTouch, a.dnt, true, "")
	})
}

func (a *Assembly) masterEntity() (scene.Handle, bool) {
	w, plug, ok := a.Master()
	if !ok {
		return scene.NoHandle, false
	}
	return w.Plug(plug)
}

func (a *Assembly) attach(w *widget.Widget, category string, target scene.Handle, ok bool, plug string) error {
	entities := w.Category(category)
	if len(entities) == 0 {
		return nil
	}
	if !ok {
		reason := "attachment plug unresolved"
		if plug == "" && category == widget.CategoryIK {
			reason = "no master plug"
		}
		a.warn(Warning{Component: w.ID(), Category: category, Plug: plug, Reason: reason})
		return nil
	}
	for _, h := range entities {
		if err := a.backend.SetParent(h, target); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembly) warn(w Warning) {
	a.warnings = append(a.warnings, w)
	a.logger.Warn("rig warning",
		log.String("component", w.Component),
		log.String("category", w.Category),
		log.String("plug", w.Plug),
		log.String("reason", w.Reason))
}
