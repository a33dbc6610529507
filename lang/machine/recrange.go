package machine

// rangeState tracks, per rec_range rule id, whether that rule is
// currently "inside" its range: it has matched a from-pattern and is
// waiting for a to-pattern to close it (awk-style). Keyed by the
// parser-assigned id, so two rec_range rules never share state (the
// parser assigns ids sequentially per program, so ids are distinct
// within a single compiled Program).
type rangeState map[int]bool

func (t *Thread) ensureRangeState() {
	if t.ranges == nil {
		t.ranges = rangeState{}
	}
}

// runRecRange decodes and executes one rec_range instruction: id(1),
// exclusive(1), actionlen(2), action-bytes, has_from(1), has_to(1),
// followed on the value stack by `to` (if present) then `from` (if
// present), reflecting the compiler's reversed emission order.
func (t *Thread) runRecRange(code []byte, pc int) (int, error) {
	t.ensureRangeState()

	id := int(code[pc])
	pc++
	exclusive := code[pc] != 0
	pc++
	actionlen := int(read16(code, pc))
	pc += 2
	action := code[pc : pc+actionlen]
	pc += actionlen
	hasFrom := code[pc] != 0
	pc++
	hasTo := code[pc] != 0
	pc++

	var from, to Value
	if hasFrom {
		from = t.pop()
	}
	if hasTo {
		to = t.pop()
	}

	matched, err := t.recRangeMatches(id, from, to, hasFrom, hasTo, exclusive)
	if err != nil {
		return pc, err
	}
	if !matched {
		return pc, nil
	}

	t.pushScope()
	defer t.popScope()
	if _, err := t.run(action, 0, len(action)); err != nil {
		return pc, err
	}
	return pc, nil
}

// recRangeMatches implements the three rule shapes: a bare block (no
// pattern, always matches), a single pattern (matches when truthy), and a
// from..to range (opens on a truthy from, stays open through records
// until a truthy to closes it on that same record, honoring exclusive by
// closing one record earlier).
func (t *Thread) recRangeMatches(id int, from, to Value, hasFrom, hasTo bool, exclusive bool) (bool, error) {
	if !hasFrom && !hasTo {
		return true, nil
	}
	if hasFrom && !hasTo {
		return truth(from), nil
	}

	inRange := t.ranges[id]
	if !inRange {
		if !truth(from) {
			return false, nil
		}
		inRange = true
	}
	closing := truth(to)
	if closing && exclusive {
		t.ranges[id] = false
		return false, nil
	}
	t.ranges[id] = !closing
	return true, nil
}
