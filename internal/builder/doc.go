// Package builder contains the prerequisite builder engine: the requirement
// tree model, drop-zone resolution, undo/redo history, the palette of
// creatable requirement types, the canvas projection, and the keyboard and
// pointer interaction controller.
//
// The engine is pure data: nothing in these packages holds a presentation
// handle. Rendering surfaces consume the canvas projection and feed gestures
// back through the interaction controller, so pointer drags and keyboard
// drags produce the same operation vocabulary and share one history.
package builder
