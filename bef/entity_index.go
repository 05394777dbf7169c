package bef

import "github.com/vibeflow/befgen/ir"

// entityIndex is the second-pass byte-offset map (component I in
// spec.md §2): once the pools are laid out, every entity's pool offset
// is recorded here so function emission can cross-reference it.
// Adapted from the original's EntityIndex struct.
type entityIndex struct {
	stringOffsets map[string]StringOffset
	attrOffsets   map[string]AttrOffset // keyed by Attribute.Key()

	funcIndex []functionIndexEntry

	locationOffsets  map[*ir.Operation]LocationOffset
	debugInfoOffsets map[*ir.Operation]DebugInfoOffset

	regionLocationOffsets map[*ir.Region]LocationOffset
}

type functionIndexEntry struct {
	hasName    bool
	nameOffset StringOffset
	bodyOffset FunctionOffset
	inputs     []ir.Type
	results    []ir.Type
	kind       ir.FuncKind
}

func newEntityIndex() *entityIndex {
	return &entityIndex{
		stringOffsets:         make(map[string]StringOffset),
		attrOffsets:           make(map[string]AttrOffset),
		locationOffsets:       make(map[*ir.Operation]LocationOffset),
		debugInfoOffsets:      make(map[*ir.Operation]DebugInfoOffset),
		regionLocationOffsets: make(map[*ir.Region]LocationOffset),
	}
}

func (idx *entityIndex) addString(s string, offset StringOffset) {
	idx.stringOffsets[s] = offset
}

func (idx *entityIndex) stringOffset(s string) StringOffset {
	off, ok := idx.stringOffsets[s]
	if !ok {
		panic("bef: string not in pool at lookup — InvariantError")
	}
	return off
}

func (idx *entityIndex) addAttrOffset(attr ir.Attribute, offset AttrOffset) {
	idx.attrOffsets[attr.Key()] = offset
}

func (idx *entityIndex) attrOffset(attr ir.Attribute) AttrOffset {
	off, ok := idx.attrOffsets[attr.Key()]
	if !ok {
		panic("bef: attribute not in pool at lookup — InvariantError")
	}
	return off
}

func (idx *entityIndex) addFunction(name string, bodyOffset FunctionOffset, inputs, results []ir.Type, kind ir.FuncKind) {
	var nameOff StringOffset
	if name != "" {
		nameOff = idx.stringOffset(name)
	}
	idx.funcIndex = append(idx.funcIndex, functionIndexEntry{
		hasName:    name != "",
		nameOffset: nameOff,
		bodyOffset: bodyOffset,
		inputs:     inputs,
		results:    results,
		kind:       kind,
	})
}

func (idx *entityIndex) addLocationOffset(op *ir.Operation, offset LocationOffset) {
	idx.locationOffsets[op] = offset
}

func (idx *entityIndex) locationOffset(op *ir.Operation) LocationOffset {
	off, ok := idx.locationOffsets[op]
	if !ok {
		panic("bef: unknown location — InvariantError")
	}
	return off
}

func (idx *entityIndex) addDebugInfoOffset(op *ir.Operation, offset DebugInfoOffset) {
	idx.debugInfoOffsets[op] = offset
}

func (idx *entityIndex) debugInfoOffset(op *ir.Operation) (DebugInfoOffset, bool) {
	off, ok := idx.debugInfoOffsets[op]
	return off, ok
}

func (idx *entityIndex) addRegionLocationOffset(region *ir.Region, offset LocationOffset) {
	idx.regionLocationOffsets[region] = offset
}

func (idx *entityIndex) regionLocationOffset(region *ir.Region) LocationOffset {
	off, ok := idx.regionLocationOffsets[region]
	if !ok {
		panic("bef: region has no recorded location — InvariantError, caller bug")
	}
	return off
}
