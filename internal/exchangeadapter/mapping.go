package exchangeadapter

import "github.com/marketsim/xsim/internal/model"

// orderKey identifies an order from the requester's point of view: who
// placed it and what client order id they gave it.
type orderKey struct {
	Owner model.AgentID
	CID   model.ClientOrderID
}

// mappings holds the adapter's three synchronized tables: forward
// (owner, cid) -> engine id, reverse, and engine id -> order kind. They
// are updated together and erased together.
type mappings struct {
	forward map[orderKey]model.EngineID
	reverse map[model.EngineID]orderKey
	kind    map[model.EngineID]model.OrderKind
}

func newMappings() *mappings {
	return &mappings{
		forward: make(map[orderKey]model.EngineID),
		reverse: make(map[model.EngineID]orderKey),
		kind:    make(map[model.EngineID]model.OrderKind),
	}
}

func (m *mappings) register(owner model.AgentID, cid model.ClientOrderID, id model.EngineID, k model.OrderKind) {
	key := orderKey{Owner: owner, CID: cid}
	m.forward[key] = id
	m.reverse[id] = key
	m.kind[id] = k
}

func (m *mappings) erase(id model.EngineID) {
	if key, ok := m.reverse[id]; ok {
		delete(m.forward, key)
	}
	delete(m.reverse, id)
	delete(m.kind, id)
}

// resolve looks up the engine id for (owner, cid), requiring it to be of
// kind want. Mis-typed lookups (e.g. a partial-cancel aimed at a market
// id) fail exactly like an absent mapping, so the caller rejects them
// without ever touching the engine.
func (m *mappings) resolve(owner model.AgentID, cid model.ClientOrderID, want model.OrderKind) (model.EngineID, bool) {
	key := orderKey{Owner: owner, CID: cid}
	id, ok := m.forward[key]
	if !ok || m.kind[id] != want {
		return 0, false
	}
	return id, true
}

func (m *mappings) orderKeyOf(id model.EngineID) (orderKey, bool) {
	key, ok := m.reverse[id]
	return key, ok
}

func (m *mappings) flush() {
	m.forward = make(map[orderKey]model.EngineID)
	m.reverse = make(map[model.EngineID]orderKey)
	m.kind = make(map[model.EngineID]model.OrderKind)
}
