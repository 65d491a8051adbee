package policy

import "fmt"

// MinZonesPerClass is the number of zones every class with at least that
// many signature groups is guaranteed.
const MinZonesPerClass = 2

// Result is the outcome of Apply.
type Result struct {
	Zones    []int // zones per class
	Assigned int   // sum of Zones
	Wasted   int   // usable budget left unassigned
	Degraded bool  // budget could not cover the per-class minimum
}

// Apply distributes budget across classes with freq[i] unique signature
// groups each.
func Apply(freq []int, budget int) (Result, error) {
	res := Result{Zones: make([]int, len(freq))}

	totalSig, minSig, populated := 0, 0, 0
	for i, f := range freq {
		if f < 0 {
			return Result{}, fmt.Errorf("policy: negative frequency %d for class %d", f, i)
		}
		m := min(f, MinZonesPerClass)
		totalSig += f
		res.Zones[i] = m
		minSig += m
		if f > 0 {
			populated++
		}
	}

	remaining := min(budget, totalSig)
	if remaining < minSig {
		return degrade(freq, budget, populated)
	}
	remaining -= minSig
	totalSig -= minSig
	res.Assigned = minSig

	if totalSig > 0 {
		modulo := 0
		for i, f := range freq {
			if f < MinZonesPerClass {
				continue
			}
			numer := (f - MinZonesPerClass) * remaining
			n := numer / totalSig

			// Carry the remainder and round up once it spans a whole zone.
			modulo += numer % totalSig
			if modulo >= totalSig {
				n++
				modulo -= totalSig
			}

			// Never more zones than groups.
			if n+MinZonesPerClass > f {
				extra := n + MinZonesPerClass - f
				modulo += extra * totalSig
				n -= extra
			}
			res.Zones[i] += n
			res.Assigned += n
		}
	}

	res.Wasted = remaining + minSig - res.Assigned
	return res, nil
}

// degrade gives every populated class one zone, then a second zone to
// classes in order while budget remains.
func degrade(freq []int, budget, populated int) (Result, error) {
	if budget < populated {
		return Result{}, fmt.Errorf("%w: budget %d, populated classes %d", ErrBudgetTooSmall, budget, populated)
	}
	res := Result{Zones: make([]int, len(freq)), Degraded: true}
	for i, f := range freq {
		if f > 0 {
			res.Zones[i] = 1
		}
	}
	left := budget - populated
	for i, f := range freq {
		if left == 0 {
			break
		}
		if f >= MinZonesPerClass {
			res.Zones[i]++
			left--
		}
	}
	for _, z := range res.Zones {
		res.Assigned += z
	}
	return res, nil
}
