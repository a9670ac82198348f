package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/bazaar/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, NewSale("req-1", 7, "saurav", 20)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	c := <-q.Dequeue(ctx)
	if c.ID != "req-1" || c.Kind != KindSale || c.PlayerID != 7 || c.TeamID != "saurav" || c.Price != 20 {
		t.Errorf("unexpected command %+v", c)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, NewUndo(fmt.Sprintf("undo-%d", i))); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}
	if err := q.Enqueue(ctx, NewReset("reset")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_RejectsBadCommands(t *testing.T) {
	q := NewInMemoryQueue()

	if err := q.Enqueue(context.Background(), Command{Kind: "bid"}); !errors.Is(err, ErrBadKind) {
		t.Errorf("expected ErrBadKind, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, NewUndo("u")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := q.Enqueue(ctx, NewEdit(fmt.Sprintf("edit-%d", i), model.PlayerID(i), model.Ratings{})); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []model.PlayerID
	for c := range q.Dequeue(ctx) {
		got = append(got, c.PlayerID)
	}
	if len(got) != 50 {
		t.Fatalf("expected 50 commands, got %d", len(got))
	}
	for i, id := range got {
		if id != model.PlayerID(i) {
			t.Fatalf("position %d holds player %d", i, id)
		}
	}
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()

	consumed := make(chan string, 400)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for c := range q.Dequeue(ctx) {
			consumed <- c.ID
		}
	}()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c := NewUndo(fmt.Sprintf("undo-%d-%d", g, i))
				for errors.Is(q.Enqueue(ctx, c), ErrFull) {
					time.Sleep(time.Millisecond)
				}
			}
		}(g)
	}
	wg.Wait()
	_ = q.Close()
	<-done

	if len(consumed) != 400 {
		t.Errorf("expected 400 commands consumed, got %d", len(consumed))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, NewUndo("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected dequeue channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected dequeue channel to be closed within timeout")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

func TestCommand_ReplyAndWait(t *testing.T) {
	c := NewSale("req", 1, "a", 5)
	c.Reply(Result{Sale: model.Sale{EventID: "evt"}})
	c.Reply(Result{Err: errors.New("dropped")})

	r, err := c.Wait(context.Background())
	if err != nil || r.Sale.EventID != "evt" || r.Err != nil {
		t.Errorf("unexpected reply %+v, %v", r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Wait(ctx); !errors.Is(err, ErrCanceled) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected canceled wait, got %v", err)
	}

	if _, err := (Command{}).Wait(context.Background()); !errors.Is(err, ErrNoReply) {
		t.Errorf("expected ErrNoReply, got %v", err)
	}
}
