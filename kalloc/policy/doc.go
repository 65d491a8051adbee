// Package policy decides how many type-isolated zones each size class gets
// and randomizes which zone backs which signature group.
//
// # Budget Distribution
//
// Apply takes, per size class, the number of unique signature groups and a
// global zone budget. Every class with signatures first gets min(2, groups)
// zones. The rest of the budget (capped at the total number of groups) is
// shared in proportion to groups-2 using integer division; remainders are
// carried from one class to the next, so the result depends on class order.
// No class ever gets more zones than it has groups. Budget left over is
// reported as wasted.
//
// When the budget cannot cover two zones per class, Apply degrades to one
// zone per class and hands the leftover out in class order. A budget below
// one zone per class is an error.
//
// # Randomization
//
// A Drawer consumes a 64-bit entropy word 16 bits at a time and refills it
// from its Source when the word runs out. Shuffle builds a random
// permutation with an inside-out Fisher–Yates pass driven by a Drawer.
package policy
