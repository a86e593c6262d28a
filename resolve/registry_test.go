package resolve

import (
	"testing"

	"github.com/uptree-dev/uptree/tree"
)

func TestRegistry_IsProvided(t *testing.T) {
	r := NewRegistry()
	n := node("p", nil)

	if r.IsProvided(n) {
		t.Error("IsProvided = true for a node never marked")
	}

	r.MarkProvided(n)
	if !r.IsProvided(n) {
		t.Error("IsProvided = false after MarkProvided")
	}

	// Readiness is monotonic until the node is forgotten.
	r.MarkProvided(n)
	if !r.IsProvided(n) {
		t.Error("IsProvided reverted after second MarkProvided")
	}

	r.Forget(n)
	if r.IsProvided(n) {
		t.Error("IsProvided = true after Forget")
	}
}

func TestRegistry_MarkProvided_NotifiesInOrder(t *testing.T) {
	r := NewRegistry()
	n := node("p", nil)

	var order []int
	r.Subscribe(n, func(tree.Node) { order = append(order, 1) })
	r.Subscribe(n, func(tree.Node) { order = append(order, 2) })
	r.Subscribe(n, func(tree.Node) { order = append(order, 3) })

	r.MarkProvided(n)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("listener order = %v, want [1 2 3]", order)
	}
}

func TestRegistry_MarkProvided_Idempotent(t *testing.T) {
	r := NewRegistry()
	n := node("p", nil)

	fired := 0
	r.Subscribe(n, func(tree.Node) { fired++ })

	r.MarkProvided(n)
	r.MarkProvided(n)

	if fired != 1 {
		t.Errorf("listener fired %d times across two MarkProvided calls, want 1", fired)
	}

	// A listener registered between calls fires exactly as a single call
	// would fire it.
	late := 0
	r.Subscribe(n, func(tree.Node) { late++ })
	r.MarkProvided(n)

	if late != 1 {
		t.Errorf("late listener fired %d times, want 1", late)
	}
	if fired != 1 {
		t.Errorf("original listener re-fired: %d total invocations", fired)
	}
}

func TestRegistry_SelfRemovalDuringDispatch(t *testing.T) {
	r := NewRegistry()
	n := node("p", nil)

	first := 0
	var sub *Subscription
	sub = r.Subscribe(n, func(tree.Node) {
		sub.Cancel()
		first++
	})
	second := 0
	r.Subscribe(n, func(tree.Node) { second++ })

	r.MarkProvided(n)
	r.MarkProvided(n)

	if first != 1 {
		t.Errorf("self-removing listener fired %d times, want 1", first)
	}
	if second != 1 {
		t.Errorf("sibling listener fired %d times, want 1", second)
	}
}

func TestRegistry_CancelSiblingDuringDispatch(t *testing.T) {
	r := NewRegistry()
	n := node("p", nil)

	var subB *Subscription
	bFired := false
	r.Subscribe(n, func(tree.Node) { subB.Cancel() })
	subB = r.Subscribe(n, func(tree.Node) { bFired = true })

	r.MarkProvided(n)

	if bFired {
		t.Error("listener cancelled earlier in the same dispatch still fired")
	}
}

func TestRegistry_Cancel_Twice(t *testing.T) {
	r := NewRegistry()
	n := node("p", nil)

	fired := false
	sub := r.Subscribe(n, func(tree.Node) { fired = true })
	sub.Cancel()
	sub.Cancel()

	r.MarkProvided(n)
	if fired {
		t.Error("cancelled listener fired")
	}
}

func TestRegistry_SubscribeAfterProvided_NotRetroactive(t *testing.T) {
	r := NewRegistry()
	n := node("p", nil)
	r.MarkProvided(n)

	fired := 0
	r.Subscribe(n, func(tree.Node) { fired++ })
	if fired != 0 {
		t.Fatal("Subscribe invoked the listener retroactively")
	}

	r.MarkProvided(n)
	if fired != 1 {
		t.Errorf("listener fired %d times on re-mark, want 1", fired)
	}
}

func TestRegistry_ListenerReceivesProvider(t *testing.T) {
	r := NewRegistry()
	n := node("p", nil)

	var got tree.Node
	r.Subscribe(n, func(prov tree.Node) { got = prov })
	r.MarkProvided(n)

	if got != tree.Node(n) {
		t.Errorf("listener received %v, want the provider node", got)
	}
}
