package coordinator

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestCoordinatorCompletesOnceEveryDestinationReplies(t *testing.T) {
	c := New(NewListMerger[string](), nil)
	if c.State() != Created {
		t.Fatalf("State() = %v, want Created", c.State())
	}

	c.Start([]string{"n1", "n2", "n3"})
	if c.State() != Waiting {
		t.Fatalf("State() = %v, want Waiting", c.State())
	}

	c.Reply("n1", "a")
	c.Reply("n2", "b")
	select {
	case <-c.Done():
		t.Fatal("coordinator completed before every destination replied")
	default:
	}

	c.Reply("n3", "c")
	select {
	case <-c.Done():
	default:
		t.Fatal("coordinator did not complete once every destination replied")
	}

	result, missing, err := c.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("Missing = %v, want none", missing)
	}
	got := result.([]string)
	sort.Strings(got)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("result = %v, want [a b c]", got)
	}
}

func TestCoordinatorThreeNodePartialFailure(t *testing.T) {
	c := New(NewListMerger[string](), nil)
	c.Start([]string{"n1", "n2", "n3"})

	c.Reply("n1", "a")
	c.Timeout("n2")
	select {
	case <-c.Done():
		t.Fatal("coordinator completed with one destination still pending")
	default:
	}

	c.Reply("n3", "c")
	select {
	case <-c.Done():
	default:
		t.Fatal("coordinator did not complete once the remaining destination settled")
	}

	result, missing, err := c.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if len(missing) != 1 || missing[0] != "n2" {
		t.Errorf("Missing = %v, want [n2]", missing)
	}
	got := result.([]string)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("result = %v, want [a c]", got)
	}
}

func TestCoordinatorWithNoDestinationsCompletesImmediately(t *testing.T) {
	c := New(NewListMerger[string](), nil)
	c.Start(nil)
	if c.State() != Complete {
		t.Fatalf("State() = %v, want Complete", c.State())
	}
}

func TestCoordinatorIgnoresReplyAfterCompletion(t *testing.T) {
	c := New(NewListMerger[string](), nil)
	c.Start([]string{"n1"})
	c.Reply("n1", "a")

	c.Reply("n1", "duplicate")
	result, _, err := c.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	got := result.([]string)
	if len(got) != 1 {
		t.Errorf("result = %v, want a single reply recorded", got)
	}
}

func TestArmDeadlineCompletesWithPartialResultAndMissing(t *testing.T) {
	c := New(NewListMerger[string](), nil)
	c.Start([]string{"node1", "node2", "node3"})
	c.ArmDeadline(10 * time.Millisecond)

	c.Reply("node1", "a")
	c.Reply("node3", "c")
	// node2 never replies — its destination stays pending until the armed
	// deadline fires.

	select {
	case <-c.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatal("coordinator never completed after its deadline elapsed")
	}

	result, missing, err := c.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if len(missing) != 1 || missing[0] != "node2" {
		t.Errorf("Missing = %v, want [node2]", missing)
	}
	got := result.([]string)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("result = %v, want [a c]", got)
	}
}

func TestArmDeadlineDoesNotFireOnceEveryDestinationReplied(t *testing.T) {
	c := New(NewListMerger[string](), nil)
	c.Start([]string{"n1"})
	c.ArmDeadline(20 * time.Millisecond)
	c.Reply("n1", "a")

	<-c.Done()
	time.Sleep(40 * time.Millisecond) // let the armed timer's fire window pass

	_, missing, err := c.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("Missing = %v, want none — deadline should have been stopped on normal completion", missing)
	}
}

func TestCoordinatorAwaitRespectsContextCancellation(t *testing.T) {
	c := New(NewListMerger[string](), nil)
	c.Start([]string{"n1"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := c.Await(ctx)
	if err == nil {
		t.Fatal("expected an error when the context expires before completion")
	}
}

func TestKeyedMergerAggregatesPerKeyAcrossDestinations(t *testing.T) {
	c := New(NewKeyedMerger(), nil)
	c.Start([]string{"n1", "n2"})

	c.Reply("n1", map[string][]any{"temperature": {1.0, 2.0}})
	c.Reply("n2", map[string][]any{"temperature": {3.0}, "humidity": {40.0}})

	result, _, err := c.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	merged := result.(map[string][]any)
	if len(merged["temperature"]) != 3 {
		t.Errorf("temperature entries = %d, want 3", len(merged["temperature"]))
	}
	if len(merged["humidity"]) != 1 {
		t.Errorf("humidity entries = %d, want 1", len(merged["humidity"]))
	}
}

func TestTablePutGetDelete(t *testing.T) {
	table := NewTable()
	c := New(NewListMerger[string](), nil)
	c.Start([]string{"n1"})

	table.Put("node1-1", c)
	got, ok := table.Get("node1-1")
	if !ok || got != c {
		t.Fatal("Get did not return the coordinator registered under its query id")
	}

	table.Delete("node1-1")
	if _, ok := table.Get("node1-1"); ok {
		t.Fatal("coordinator still present after Delete")
	}
}

func TestIDGeneratorIsMonotonicPerHost(t *testing.T) {
	g := NewIDGenerator("node1")
	first := g.Next()
	second := g.Next()
	if first == second {
		t.Fatalf("IDGenerator produced duplicate ids: %s", first)
	}
	if first != "node1-1" || second != "node1-2" {
		t.Errorf("ids = %s, %s, want node1-1, node1-2", first, second)
	}
}
