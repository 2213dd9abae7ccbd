// Package scheduler implements best-fit-by-CPU-slack placement of
// pods onto online nodes: among nodes with enough free CPU and
// memory, it picks the one that would be left with the smallest
// remaining CPU slack after placement, concentrating load so other
// nodes keep larger free slots for future pods.
package scheduler
