package dom

import "sort"

// Event is a minimal DOM Event: enough for the action-readiness core to
// prove it fired the right thing (spec.md §1: "the core only verifies
// when an action may proceed and surfaces standard DOM events for
// input/change/dispatchEvent"; actual listener wiring belongs to whatever
// page script the controller injected, which this module does not model).
type Event struct {
	Type       string
	Bubbles    bool
	Cancelable bool
	Composed   bool
	Init       map[string]interface{}
}

// Listener receives dispatched events.
type Listener func(target *Node, ev Event)

// AddEventListener registers fn to run whenever an event of typ is
// dispatched at n or, if the event bubbles, at a descendant of n.
func (d *Document) AddEventListener(n *Node, typ string, fn Listener) {
	if d.listeners == nil {
		d.listeners = make(map[*Node]map[string][]Listener)
	}
	if d.listeners[n] == nil {
		d.listeners[n] = make(map[string][]Listener)
	}
	d.listeners[n][typ] = append(d.listeners[n][typ], fn)
}

// Dispatch fires ev at target, then — if ev.Bubbles — at each ancestor in
// turn (through shadow hosts, since composed events retarget across
// shadow boundaries the same way bubbling does here). Every dispatched
// event is also appended to the document's event log for test assertions.
func (d *Document) Dispatch(target *Node, ev Event) {
	d.eventLog = append(d.eventLog, DispatchedEvent{Target: target, Event: ev})

	cur := target
	for cur != nil {
		if handlers, ok := d.listeners[cur]; ok {
			names := make([]string, 0, len(handlers))
			for name := range handlers {
				names = append(names, name)
			}
			sort.Strings(names)
			if fns, ok := handlers[ev.Type]; ok {
				for _, fn := range fns {
					fn(target, ev)
				}
			}
		}
		if !ev.Bubbles {
			break
		}
		if cur.Parent == nil {
			host, ok := d.hostOf(cur)
			if !ok {
				break
			}
			cur = host
			continue
		}
		cur = cur.Parent
	}
}

// DispatchedEvent records one Dispatch call, kept for assertions in
// tests and for controllers that want to inspect what fired.
type DispatchedEvent struct {
	Target *Node
	Event  Event
}

// EventLog returns every event dispatched on this document so far, in
// order.
func (d *Document) EventLog() []DispatchedEvent {
	return d.eventLog
}

// FireInputAndChange is the two-event sequence spec.md §4.E fires after a
// successful fill or selectOptions: "fire input and change events
// (bubbling)".
func (d *Document) FireInputAndChange(n *Node) {
	d.Dispatch(n, Event{Type: "input", Bubbles: true, Cancelable: false, Composed: true})
	d.Dispatch(n, Event{Type: "change", Bubbles: true, Cancelable: false, Composed: true})
}
