// fastview implements a builder pattern for simple server side views:
// given an input data model, convert it to a view-model, and then
// multiplex the view-model to one or more views that each emit the
// element updates needed to bring a client page up to date.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or 'textContent', values are the strings to which these are set.
	// Example: ('fill','red') means 'set attribute fill to red'. 'textContent' is a reserved key:
	// ('textContent','A') means 'set ele.textContent to A'.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// TEXT_CONTENT is the reserved op key for replacing an element's text.
const TEXT_CONTENT = "textContent"

// ViewComponent is a server side view: Parse adds its initial markup to a page
// template, and Updates notifies the ele-updates that keep the page current.
// Every batch of updates should describe the view's full state, so that
// intervening batches may be dropped.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse adds the view's template definition to the passed parent, inheriting its
	// func-map, and returns the name of the definition.
	Parse(*template.Template) (string, error)
}
