package mpt

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
)

// sequentialTaskLimit is the number of dirty nodes below which Commit
// doesn't bother with goroutines.
const sequentialTaskLimit = 64

// task is a unit of commit work: encoding (and hashing, where the encoding is
// referenced by hash) of a single node. A task has at most one parent and
// becomes runnable when all of its children are done.
type task struct {
	node    Node
	isRoot  bool
	pending atomic.Int32
	parent  *task
}

// run encodes the node and returns the parent task if it became ready as a
// result.
func (t *task) run() *task {
	enc := t.node.Bytes()
	if t.isRoot || len(enc) >= common.HashLength {
		_ = t.node.Hash()
	}
	if t.parent == nil || t.parent.pending.Add(-1) != 0 {
		return nil
	}
	return t.parent
}

// Commit computes encodings and digests of all nodes in the trie rooted at
// root that don't have them cached yet and returns the root digest.
// Independent subtrees are processed in parallel by up to workers
// goroutines, every node is processed after all of its children.
func Commit(root Node, workers int) common.Hash {
	if root.Type() == EmptyT {
		return EmptyRootHash
	}
	tasks := collectTasks(root, nil, nil)
	if len(tasks) > 0 {
		tasks[len(tasks)-1].isRoot = true
	}
	runTasks(tasks, workers)
	return RootHash(root)
}

// collectTasks appends tasks for n and its dirty descendants in post-order,
// so that every task follows all of its dependencies.
func collectTasks(n Node, parent *task, tasks []*task) []*task {
	if n.isCached() {
		return tasks
	}
	t := &task{node: n, parent: parent}
	var deps int32
	switch n := n.(type) {
	case *BranchNode:
		for i := range lastChild {
			if !n.Children[i].isCached() {
				deps++
				tasks = collectTasks(n.Children[i], t, tasks)
			}
		}
	case *ExtensionNode:
		if !n.next.isCached() {
			deps++
			tasks = collectTasks(n.next, t, tasks)
		}
	}
	t.pending.Store(deps)
	return append(tasks, t)
}

// runTasks executes tasks respecting their dependencies. It returns when all
// of them are completed.
func runTasks(tasks []*task, workers int) {
	if workers <= 1 || len(tasks) < sequentialTaskLimit {
		for _, t := range tasks {
			t.run()
		}
		return
	}

	workList := make([]*task, 0, len(tasks)/2)
	for _, t := range tasks {
		if t.pending.Load() == 0 {
			workList = append(workList, t)
		}
	}

	var (
		pos atomic.Int64
		wg  sync.WaitGroup
	)
	process := func() {
		for {
			next := pos.Add(1) - 1
			if int(next) >= len(workList) {
				return
			}
			for t := workList[next]; t != nil; {
				t = t.run()
			}
		}
	}
	for range workers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			process()
		}()
	}
	process()
	wg.Wait()
}
