//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"syscall/js"
	"time"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/client"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/engine"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/inventory"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/persist"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/selection"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/store"
)

var (
	eng          *engine.Engine
	mgr          *persist.Manager
	stopAutosave context.CancelFunc
)

func main() {
	eng = engine.NewEngine(engine.DefaultOptions())

	// Create the engine API object
	nocEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	nocEngine.Set("pointerDown", js.FuncOf(pointerDown))
	nocEngine.Set("pointerMove", js.FuncOf(pointerMove))
	nocEngine.Set("pointerUp", js.FuncOf(pointerUp))
	nocEngine.Set("wheel", js.FuncOf(wheel))
	nocEngine.Set("keyDown", js.FuncOf(keyDown))
	nocEngine.Set("rightClick", js.FuncOf(rightClick))
	nocEngine.Set("outsideClick", js.FuncOf(outsideClick))
	nocEngine.Set("hideMenu", js.FuncOf(hideMenu))
	nocEngine.Set("drop", js.FuncOf(drop))
	nocEngine.Set("resolveDuplicate", js.FuncOf(resolveDuplicate))
	nocEngine.Set("connectSelected", js.FuncOf(connectSelected))
	nocEngine.Set("deleteSelection", js.FuncOf(deleteSelection))
	nocEngine.Set("clearCanvas", js.FuncOf(clearCanvas))
	nocEngine.Set("loadSample", js.FuncOf(loadSample))
	nocEngine.Set("loadCanvas", js.FuncOf(loadCanvas))
	nocEngine.Set("renameDevice", js.FuncOf(renameDevice))
	nocEngine.Set("updateDevice", js.FuncOf(updateDevice))
	nocEngine.Set("addPort", js.FuncOf(addPort))
	nocEngine.Set("removePort", js.FuncOf(removePort))
	nocEngine.Set("addShape", js.FuncOf(addShape))
	nocEngine.Set("updateShape", js.FuncOf(updateShape))
	nocEngine.Set("setRoutingStyle", js.FuncOf(setRoutingStyle))
	nocEngine.Set("addWaypoint", js.FuncOf(addWaypoint))
	nocEngine.Set("deleteWaypoint", js.FuncOf(deleteWaypoint))
	nocEngine.Set("setSnap", js.FuncOf(setSnap))
	nocEngine.Set("setLayerVisible", js.FuncOf(setLayerVisible))
	nocEngine.Set("setViewportSize", js.FuncOf(setViewportSize))
	nocEngine.Set("zoom", js.FuncOf(zoom))
	nocEngine.Set("resetView", js.FuncOf(resetView))
	nocEngine.Set("fitToContent", js.FuncOf(fitToContent))

	// --- Persistence (async, return Promises) ---
	nocEngine.Set("connectBackend", js.FuncOf(connectBackend))
	nocEngine.Set("save", js.FuncOf(save))
	nocEngine.Set("open", js.FuncOf(open))
	nocEngine.Set("list", js.FuncOf(list))
	nocEngine.Set("deleteCanvas", js.FuncOf(deleteCanvas))

	// --- Queries (frontend ← backend) ---
	nocEngine.Set("render", js.FuncOf(render))
	nocEngine.Set("hitTest", js.FuncOf(hitTest))
	nocEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	nocEngine.Set("getState", js.FuncOf(getState))
	nocEngine.Set("getCanvas", js.FuncOf(getCanvas))
	nocEngine.Set("getLayers", js.FuncOf(getLayers))
	nocEngine.Set("isDirty", js.FuncOf(isDirty))

	// Register on global scope
	js.Global().Set("nocEngine", nocEngine)

	// Signal that WASM is ready
	js.Global().Set("nocWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() js.Value {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// pointArgs reads x, y from args[0], args[1].
func pointArgs(args []js.Value) (geom.Point, bool) {
	if len(args) < 2 {
		return geom.Point{}, false
	}
	return geom.Pt(args[0].Float(), args[1].Float()), true
}

// modifiers reads a {shift, ctrl, meta, alt} object.
func modifiers(v js.Value) selection.Modifiers {
	if v.Type() != js.TypeObject {
		return selection.Modifiers{}
	}
	flag := func(name string) bool {
		f := v.Get(name)
		return f.Type() == js.TypeBoolean && f.Bool()
	}
	return selection.Modifiers{
		Shift: flag("shift"),
		Ctrl:  flag("ctrl"),
		Meta:  flag("meta"),
		Alt:   flag("alt"),
	}
}

func toJSON(v any) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

// promise runs fn off the event loop and settles a JS Promise with its
// JSON-encoded result.
func promise(fn func(ctx context.Context) (any, error)) js.Value {
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			result, err := fn(ctx)
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			data, _ := json.Marshal(result)
			resolve.Invoke(string(data))
		}()
		return nil
	})
	return js.Global().Get("Promise").New(handler)
}

// --- Command Handlers ---

func pointerDown(this js.Value, args []js.Value) interface{} {
	p, ok := pointArgs(args)
	if !ok {
		return nil
	}
	var mods selection.Modifiers
	if len(args) > 2 {
		mods = modifiers(args[2])
	}
	return toJSON(eng.PointerDown(p, mods))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if p, ok := pointArgs(args); ok {
		eng.PointerMove(p)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if p, ok := pointArgs(args); ok {
		eng.PointerUp(p)
	}
	return nil
}

func wheel(this js.Value, args []js.Value) interface{} {
	p, ok := pointArgs(args)
	if !ok || len(args) < 3 {
		return nil
	}
	eng.Wheel(p, args[2].Float())
	return nil
}

func keyDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	var mods selection.Modifiers
	if len(args) > 1 {
		mods = modifiers(args[1])
	}
	return js.ValueOf(eng.KeyDown(engine.Key(args[0].String()), mods))
}

func rightClick(this js.Value, args []js.Value) interface{} {
	p, ok := pointArgs(args)
	if !ok {
		return nil
	}
	return toJSON(eng.RightClick(p))
}

func outsideClick(this js.Value, args []js.Value) interface{} {
	inside := len(args) > 0 && args[0].Truthy()
	return js.ValueOf(eng.OutsideClick(inside))
}

func hideMenu(this js.Value, args []js.Value) interface{} {
	eng.HideMenu()
	return nil
}

func drop(this js.Value, args []js.Value) interface{} {
	p, ok := pointArgs(args)
	if !ok || len(args) < 3 {
		return js.ValueOf(map[string]interface{}{"error": "missing drop payload"})
	}
	res, err := eng.Drop(p, []byte(args[2].String()))
	var dup *inventory.DuplicateError
	if errors.As(err, &dup) {
		return js.ValueOf(map[string]interface{}{
			"duplicate":   true,
			"existing_id": dup.Existing.ID,
			"name":        dup.Existing.Name,
			"matched_by":  dup.MatchedBy,
		})
	}
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{"device_id": res.DeviceID, "shape_id": res.ShapeID})
}

func resolveDuplicate(this js.Value, args []js.Value) interface{} {
	choice := engine.ReuseExisting
	if len(args) > 0 && args[0].String() == "create" {
		choice = engine.CreateNew
	}
	dev, err := eng.ResolveDuplicate(choice)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{"device_id": dev.ID})
}

func connectSelected(this js.Value, args []js.Value) interface{} {
	connType := "ethernet"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		connType = args[0].String()
	}
	c, err := eng.ConnectSelected(connType)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{"connection_id": c.ID})
}

func deleteSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.DeleteSelection())
}

func clearCanvas(this js.Value, args []js.Value) interface{} {
	eng.ClearCanvas()
	if mgr != nil {
		mgr.Detach()
	}
	return nil
}

func loadSample(this js.Value, args []js.Value) interface{} {
	if err := eng.LoadSample(); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func loadCanvas(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing canvas JSON"})
	}
	var data document.CanvasData
	if err := json.Unmarshal([]byte(args[0].String()), &data); err != nil {
		return errorResult(err)
	}
	if err := eng.Restore(data); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func renameDevice(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	name := args[1].String()
	if _, err := eng.UpdateDevice(args[0].Int(), store.DevicePatch{Name: &name}); err != nil {
		return errorResult(err)
	}
	return okResult()
}

// updateDevice(id, patchJSON)
func updateDevice(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	dev, err := eng.UpdateDeviceJSON(args[0].Int(), args[1].String())
	if err != nil {
		return errorResult(err)
	}
	return toJSON(dev)
}

// addPort(deviceId, portJSON)
func addPort(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	if _, err := eng.AddPortJSON(args[0].Int(), args[1].String()); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func removePort(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	if err := eng.RemovePort(args[0].Int(), args[1].String()); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func addShape(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing shape JSON"})
	}
	sh, err := eng.AddShapeJSON(args[0].String())
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{"shape_id": sh.ID})
}

// updateShape(id, patchJSON)
func updateShape(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	sh, err := eng.UpdateShapeJSON(args[0].Int(), args[1].String())
	if err != nil {
		return errorResult(err)
	}
	return toJSON(sh)
}

func setRoutingStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	style := document.RoutingStyle(args[1].String())
	if _, err := eng.UpdateConnection(args[0].Int(), store.ConnectionPatch{RoutingStyle: &style}); err != nil {
		return errorResult(err)
	}
	return okResult()
}

// addWaypoint(connectionId, worldX, worldY) takes the world position a
// connection menu was opened at.
func addWaypoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(-1)
	}
	idx, ok := eng.AddWaypoint(args[0].Int(), geom.Pt(args[1].Float(), args[2].Float()))
	if !ok {
		return js.ValueOf(-1)
	}
	return js.ValueOf(idx)
}

func deleteWaypoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.DeleteWaypoint(args[0].Int(), args[1].Int()))
}

func setSnap(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	grid := engine.DefaultOptions().GridSize
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		grid = args[1].Float()
	}
	eng.SetSnap(args[0].Truthy(), grid)
	return nil
}

func setLayerVisible(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	if err := eng.SetLayerVisible(args[0].String(), args[1].Truthy()); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func setViewportSize(this js.Value, args []js.Value) interface{} {
	if p, ok := pointArgs(args); ok {
		eng.SetViewportSize(geom.Size{Width: p.X, Height: p.Y})
	}
	return nil
}

func zoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.Zoom(args[0].Float())
	return nil
}

func resetView(this js.Value, args []js.Value) interface{} {
	eng.ResetView()
	return nil
}

func fitToContent(this js.Value, args []js.Value) interface{} {
	eng.FitToContent()
	return nil
}

// --- Persistence Handlers ---

// connectBackend(baseURL, token) points persistence at the canvas API and
// starts autosave.
func connectBackend(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing base URL or token"})
	}
	if stopAutosave != nil {
		stopAutosave()
	}

	c := client.New(args[0].String(), client.WithToken(args[1].String()))
	mgr = persist.NewManager(c, eng)

	ctx, cancel := context.WithCancel(context.Background())
	stopAutosave = cancel
	go func(m *persist.Manager) {
		interval := client.DefaultAutosaveInterval
		if s, err := c.Settings(ctx); err == nil {
			interval = s.AutosaveInterval()
		}
		m.Run(ctx, interval)
	}(mgr)
	return okResult()
}

// save(name, sharable, overwrite)
func save(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing name"})
	}
	opts := persist.SaveOptions{Name: args[0].String()}
	if len(args) > 1 {
		opts.Sharable = args[1].Truthy()
	}
	if len(args) > 2 {
		opts.Overwrite = args[2].Truthy()
	}
	return promise(func(ctx context.Context) (any, error) {
		if mgr == nil {
			return nil, errors.New("backend not connected")
		}
		return mgr.Save(ctx, opts)
	})
}

func open(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing canvas id"})
	}
	id := args[0].String()
	replace := len(args) > 1 && args[1].Truthy()
	return promise(func(ctx context.Context) (any, error) {
		if mgr == nil {
			return nil, errors.New("backend not connected")
		}
		cv, err := mgr.Load(ctx, id, replace)
		if err != nil {
			return nil, err
		}
		return cv.Summary(), nil
	})
}

func list(this js.Value, args []js.Value) interface{} {
	return promise(func(ctx context.Context) (any, error) {
		if mgr == nil {
			return nil, errors.New("backend not connected")
		}
		return mgr.List(ctx)
	})
}

func deleteCanvas(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing canvas id"})
	}
	id := args[0].String()
	return promise(func(ctx context.Context) (any, error) {
		if mgr == nil {
			return nil, errors.New("backend not connected")
		}
		if err := mgr.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.RenderJSON())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	p, ok := pointArgs(args)
	if !ok {
		return js.ValueOf("null")
	}
	return toJSON(eng.HitTest(p))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(engine.RectToJSON(eng.SelectionBounds()))
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.StateJSON())
}

func getCanvas(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Snapshot())
}

func getLayers(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.LayerVisibility())
}

func isDirty(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(mgr != nil && mgr.Dirty())
}
