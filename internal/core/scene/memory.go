package scene

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zeusync/rigsmith/internal/core/events/bus"
	"github.com/zeusync/rigsmith/internal/core/observability/log"
)

const (
	// Topic is the bus topic the memory backend publishes on.
	Topic = "scene"
	// EventEntityCreated carries the created Handle as event data.
	EventEntityCreated = "entity.created"
	// EventEntityDestroyed carries the destroyed Handle as event data.
	EventEntityDestroyed = "entity.destroyed"
)

var _ Backend = (*Memory)(nil)

type entity struct {
	handle   Handle
	kind     Kind
	name     string
	parent   Handle
	children []Handle
	local    Transform
	attrs    map[string]Value
}

type fault struct {
	op   Op
	name string
}

// Memory is an in-process reference Backend. World transforms compose
// component-wise: translations and rotations add, scales multiply.
// Reparenting keeps the world transform of the moved entity.
type Memory struct {
	mu       sync.RWMutex
	entities map[Handle]*entity
	byName   map[string]Handle
	order    []Handle
	events   bus.EventBus
	logger   log.Log
	faults   map[fault]error
}

type MemoryOption func(*Memory)

func WithEventBus(eb bus.EventBus) MemoryOption {
	return func(m *Memory) { m.events = eb }
}

func WithLogger(l log.Log) MemoryOption {
	return func(m *Memory) { m.logger = l }
}

// NewMemory returns an empty scene.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entities: make(map[Handle]*entity),
		byName:   make(map[string]Handle),
		faults:   make(map[fault]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.events == nil {
		m.events = bus.New()
	}
	m.logger = log.OrNop(m.logger)
	_ = m.events.CreateTopic(Topic)
	return m
}

// Events exposes the bus creation and destruction events are published on.
func (m *Memory) Events() bus.EventBus { return m.events }

// FailOn makes the next and every later op on the entity called name fail
// with err. An empty name matches every entity.
func (m *Memory) FailOn(op Op, name string, err error) {
	if err == nil {
		err = errors.New("injected failure")
	}
	m.mu.Lock()
	m.faults[fault{op: op, name: name}] = err
	m.mu.Unlock()
}

func (m *Memory) ClearFaults() {
	m.mu.Lock()
	m.faults = make(map[fault]error)
	m.mu.Unlock()
}

func (m *Memory) faultLocked(op Op, name string) error {
	if len(m.faults) == 0 {
		return nil
	}
	if err, ok := m.faults[fault{op: op, name: name}]; ok {
		return &BackendError{Op: op, Entity: name, Err: err}
	}
	if err, ok := m.faults[fault{op: op}]; ok {
		return &BackendError{Op: op, Entity: name, Err: err}
	}
	return nil
}

func (m *Memory) CreateEntity(kind Kind, name string) (Handle, error) {
	if name == "" || strings.ContainsAny(name, " \t\n|") {
		return NoHandle, &BackendError{Op: OpCreate, Entity: name, Err: ErrInvalidName}
	}
	m.mu.Lock()
	if err := m.faultLocked(OpCreate, name); err != nil {
		m.mu.Unlock()
		return NoHandle, err
	}
	if _, taken := m.byName[name]; taken {
		m.mu.Unlock()
		return NoHandle, &BackendError{Op: OpCreate, Entity: name, Err: ErrNameTaken}
	}
	created := []Handle{m.addLocked(kind, name, NoHandle)}
	if kind == KindIKHandle {
		// ik solvers drive an effector the host owns
		created = append(created, m.addLocked(KindInternal, m.uniqueNameLocked(name+"_effector"), created[0]))
	}
	m.mu.Unlock()

	for _, h := range created {
		m.publish(EventEntityCreated, h)
	}
	return created[0], nil
}

func (m *Memory) addLocked(kind Kind, name string, parent Handle) Handle {
	h := Handle(uuid.NewString())
	e := &entity{
		handle: h,
		kind:   kind,
		name:   name,
		parent: parent,
		local:  Identity(),
		attrs:  make(map[string]Value),
	}
	m.entities[h] = e
	m.byName[name] = h
	m.order = append(m.order, h)
	if p, ok := m.entities[parent]; ok {
		p.children = append(p.children, h)
	}
	return h
}

func (m *Memory) uniqueNameLocked(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := m.byName[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}

func (m *Memory) publish(eventType string, h Handle) {
	if err := m.events.PublishToTopic(Topic, bus.NewEvent(eventType, "scene.memory", h, nil)); err != nil {
		m.logger.Warn("scene event handler failed",
			log.String("event", eventType),
			log.String("handle", string(h)),
			log.Error(err))
	}
}

// DestroyEntity removes h and all of its descendants.
func (m *Memory) DestroyEntity(h Handle) error {
	m.mu.Lock()
	e, ok := m.entities[h]
	if !ok {
		m.mu.Unlock()
		return &BackendError{Op: OpDestroy, Entity: string(h), Err: ErrNoEntity}
	}
	if err := m.faultLocked(OpDestroy, e.name); err != nil {
		m.mu.Unlock()
		return err
	}
	if p, ok := m.entities[e.parent]; ok {
		p.children = removeHandle(p.children, h)
	}
	var destroyed []Handle
	m.destroyLocked(e, &destroyed)
	m.mu.Unlock()

	for _, d := range destroyed {
		m.publish(EventEntityDestroyed, d)
	}
	return nil
}

func (m *Memory) destroyLocked(e *entity, destroyed *[]Handle) {
	for _, c := range e.children {
		if ce, ok := m.entities[c]; ok {
			m.destroyLocked(ce, destroyed)
		}
	}
	delete(m.entities, e.handle)
	delete(m.byName, e.name)
	m.order = removeHandle(m.order, e.handle)
	*destroyed = append(*destroyed, e.handle)
}

func (m *Memory) EntityExists(h Handle) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entities[h]
	return ok
}

func (m *Memory) lookupLocked(op Op, h Handle) (*entity, error) {
	e, ok := m.entities[h]
	if !ok {
		return nil, &BackendError{Op: op, Entity: string(h), Err: ErrNoEntity}
	}
	return e, nil
}

func (m *Memory) Attribute(h Handle, key string) (Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.lookupLocked(OpAttribute, h)
	if err != nil {
		return Value{}, err
	}
	if err := m.faultLocked(OpAttribute, e.name); err != nil {
		return Value{}, err
	}
	if IsTransformKey(key) {
		return e.local.Values()[key], nil
	}
	v, ok := e.attrs[key]
	if !ok {
		return Value{}, &BackendError{Op: OpAttribute, Entity: e.name + "." + key, Err: ErrNoAttribute}
	}
	return v, nil
}

// SetAttribute writes key, creating the attribute when it does not exist.
// Transform keys write the local transform.
func (m *Memory) SetAttribute(h Handle, key string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookupLocked(OpSetAttribute, h)
	if err != nil {
		return err
	}
	if err := m.faultLocked(OpSetAttribute, e.name); err != nil {
		return err
	}
	if !v.IsValid() {
		return &BackendError{Op: OpSetAttribute, Entity: e.name + "." + key, Err: errors.New("invalid value")}
	}
	if IsTransformKey(key) {
		t, ok := e.local.WithValue(key, v)
		if !ok {
			return &BackendError{Op: OpSetAttribute, Entity: e.name + "." + key, Err: fmt.Errorf("expected vector, got %s", v.Type())}
		}
		e.local = t
		return nil
	}
	e.attrs[key] = v
	return nil
}

func (m *Memory) AttributeKeys(h Handle) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.lookupLocked(OpQuery, h)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Transform(h Handle, space Space) (Transform, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.lookupLocked(OpTransform, h)
	if err != nil {
		return Transform{}, err
	}
	if err := m.faultLocked(OpTransform, e.name); err != nil {
		return Transform{}, err
	}
	if space == SpaceWorld {
		return m.worldLocked(e), nil
	}
	return e.local, nil
}

func (m *Memory) worldLocked(e *entity) Transform {
	p, ok := m.entities[e.parent]
	if !ok {
		return e.local
	}
	return compose(m.worldLocked(p), e.local)
}

func compose(parent, local Transform) Transform {
	return Transform{
		Translate: parent.Translate.Add(local.Translate),
		Rotate:    parent.Rotate.Add(local.Rotate),
		Scale:     parent.Scale.Mul(local.Scale),
	}
}

func relative(parent, world Transform) Transform {
	return Transform{
		Translate: world.Translate.Sub(parent.Translate),
		Rotate:    world.Rotate.Sub(parent.Rotate),
		Scale:     world.Scale.Div(parent.Scale),
	}
}

func (m *Memory) SetTransform(h Handle, space Space, t Transform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookupLocked(OpSetTransform, h)
	if err != nil {
		return err
	}
	if err := m.faultLocked(OpSetTransform, e.name); err != nil {
		return err
	}
	if space == SpaceWorld {
		if p, ok := m.entities[e.parent]; ok {
			t = relative(m.worldLocked(p), t)
		}
	}
	e.local = t
	return nil
}

func (m *Memory) SubscribeEntityCreated(fn func(Handle)) (Subscription, error) {
	sub, err := m.events.SubscribeTopic(Topic, EventEntityCreated, func(ev bus.Event) error {
		if h, ok := ev.Data().(Handle); ok {
			fn(h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (m *Memory) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (m *Memory) Parent(h Handle) (Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.lookupLocked(OpQuery, h)
	if err != nil {
		return NoHandle, err
	}
	return e.parent, nil
}

func (m *Memory) SetParent(h, parent Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookupLocked(OpSetParent, h)
	if err != nil {
		return err
	}
	if err := m.faultLocked(OpSetParent, e.name); err != nil {
		return err
	}
	if e.parent == parent {
		return nil
	}
	var p *entity
	if parent.Valid() {
		p, err = m.lookupLocked(OpSetParent, parent)
		if err != nil {
			return err
		}
		for a := p; a != nil; a = m.entities[a.parent] {
			if a.handle == h {
				return &BackendError{Op: OpSetParent, Entity: e.name, Err: fmt.Errorf("%w: %s is a descendant", ErrInvalidParent, p.name)}
			}
		}
	}
	world := m.worldLocked(e)
	if old, ok := m.entities[e.parent]; ok {
		old.children = removeHandle(old.children, h)
	}
	e.parent = parent
	e.local = world
	if p != nil {
		p.children = append(p.children, h)
		e.local = relative(m.worldLocked(p), world)
	}
	return nil
}

func (m *Memory) Children(h Handle) ([]Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.lookupLocked(OpQuery, h)
	if err != nil {
		return nil, err
	}
	return append([]Handle(nil), e.children...), nil
}

func (m *Memory) FindEntity(name string) (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.byName[name]
	return h, ok
}

func (m *Memory) Name(h Handle) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.lookupLocked(OpQuery, h)
	if err != nil {
		return "", err
	}
	return e.name, nil
}

func (m *Memory) EntityKind(h Handle) (Kind, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.lookupLocked(OpQuery, h)
	if err != nil {
		return "", err
	}
	return e.kind, nil
}

// Len returns the number of live entities, bookkeeping entities included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// Entities returns every live entity in creation order.
func (m *Memory) Entities() []Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Handle(nil), m.order...)
}

// Outline writes the scene hierarchy, one entity per line, indented by depth.
func (m *Memory) Outline(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var walk func(h Handle, depth int) error
	walk = func(h Handle, depth int) error {
		e := m.entities[h]
		if _, err := fmt.Fprintf(w, "%s%s (%s)\n", strings.Repeat("  ", depth), e.name, e.kind); err != nil {
			return err
		}
		for _, c := range e.children {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, h := range m.order {
		if m.entities[h].parent.Valid() {
			continue
		}
		if err := walk(h, 0); err != nil {
			return err
		}
	}
	return nil
}

func removeHandle(list []Handle, h Handle) []Handle {
	for i, x := range list {
		if x == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
