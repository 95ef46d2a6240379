package streams

import "sync"

// Stream is a lazily started sequence of values. Nothing runs until a
// consumer calls Start, and each Stream is started at most once.
type Stream[T any] struct {
	start func() <-chan T
}

// Start runs the stream and returns the channel its values arrive on. The
// channel is closed once the stream is exhausted.
func (s Stream[T]) Start() <-chan T {
	if s.start == nil {
		ch := make(chan T)
		close(ch)
		return ch
	}
	return s.start()
}

// Source calls tick until it reports false.
func Source[T any](tick func() (T, bool)) Stream[T] {
	return Stream[T]{start: func() <-chan T {
		out := make(chan T)
		go func() {
			defer close(out)
			for {
				v, ok := tick()
				if !ok {
					return
				}
				out <- v
			}
		}()
		return out
	}}
}

// Map applies f to every value of in.
func Map[T, U any](in Stream[T], f func(T) U) Stream[U] {
	return Stream[U]{start: func() <-chan U {
		src := in.Start()
		out := make(chan U)
		go func() {
			defer close(out)
			for v := range src {
				out <- f(v)
			}
		}()
		return out
	}}
}

// Merge interleaves every input into one stream, which ends when all
// inputs have ended.
func Merge[T any](inputs ...Stream[T]) Stream[T] {
	if len(inputs) == 0 {
		return Stream[T]{}
	}
	acc := inputs[0]
	for _, in := range inputs[1:] {
		acc = merge2(acc, in)
	}
	return acc
}

func merge2[T any](a, b Stream[T]) Stream[T] {
	return Stream[T]{start: func() <-chan T {
		out := make(chan T)
		var wg sync.WaitGroup
		forward := func(in <-chan T) {
			defer wg.Done()
			for v := range in {
				out <- v
			}
		}
		wg.Add(2)
		go forward(a.Start())
		go forward(b.Start())
		go func() {
			wg.Wait()
			close(out)
		}()
		return out
	}}
}

// Task is a runnable terminal of a dataflow.
type Task struct {
	run func()
}

// Run blocks until the task has consumed everything it was given.
func (t Task) Run() {
	if t.run != nil {
		t.run()
	}
}

// ForEach calls f for every value of in.
func ForEach[T any](in Stream[T], f func(T)) Task {
	return Task{run: func() {
		for v := range in.Start() {
			f(v)
		}
	}}
}

// Drain consumes in and discards its values.
func Drain[T any](in Stream[T]) Task {
	return ForEach(in, func(T) {})
}

// Join runs every task concurrently and waits for all of them.
func Join(tasks ...Task) Task {
	return Task{run: func() {
		var wg sync.WaitGroup
		for _, t := range tasks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				t.Run()
			}()
		}
		wg.Wait()
	}}
}
