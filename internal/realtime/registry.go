package realtime

// Identity is a driver currently bound to a live connection.
type Identity struct {
	Name         string `json:"name"`
	ConnectionID string `json:"connectionId"`
	Plate        string `json:"plate"`
	Spot         string `json:"spot"`
}

// LoginResult describes the side effects of a Registry.Login call.
type LoginResult struct {
	// Evicted is the connection that held the name before this login, when it
	// was a different connection.
	Evicted string
	// Released is the name this connection held before logging in under a
	// different one.
	Released string
}

// Registry maps driver names to their bound connection. At most one identity
// exists per name and one name per connection. Registry is not safe for
// concurrent use on its own; the Hub serializes access.
type Registry struct {
	byName map[string]*Identity
	byConn map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Identity),
		byConn: make(map[string]string),
	}
}

// Login binds name to connID. Plate and spot overwrite the stored values only
// when non-nil; a first login stores empty strings for missing ones.
func (r *Registry) Login(name, connID string, plate, spot *string) LoginResult {
	var res LoginResult

	if prev, ok := r.byConn[connID]; ok && prev != name {
		delete(r.byName, prev)
		res.Released = prev
	}

	id, ok := r.byName[name]
	if !ok {
		id = &Identity{Name: name}
		r.byName[name] = id
	} else if id.ConnectionID != connID {
		delete(r.byConn, id.ConnectionID)
		res.Evicted = id.ConnectionID
	}
	id.ConnectionID = connID
	if plate != nil {
		id.Plate = *plate
	}
	if spot != nil {
		id.Spot = *spot
	}
	r.byConn[connID] = name
	return res
}

// Remove deletes the identity bound to connID and returns its name. It is a
// no-op for connections that never logged in or were evicted.
func (r *Registry) Remove(connID string) (string, bool) {
	name, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	if id, ok := r.byName[name]; ok && id.ConnectionID == connID {
		delete(r.byName, name)
	}
	return name, true
}

// Lookup returns the identity registered under name.
func (r *Registry) Lookup(name string) (Identity, bool) {
	id, ok := r.byName[name]
	if !ok {
		return Identity{}, false
	}
	return *id, true
}

// NameOf returns the name bound to connID.
func (r *Registry) NameOf(connID string) (string, bool) {
	name, ok := r.byConn[connID]
	return name, ok
}

// Snapshot copies the whole registry keyed by name.
func (r *Registry) Snapshot() map[string]Identity {
	out := make(map[string]Identity, len(r.byName))
	for name, id := range r.byName {
		out[name] = *id
	}
	return out
}

// Len returns the number of registered identities.
func (r *Registry) Len() int { return len(r.byName) }
