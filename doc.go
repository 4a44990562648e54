// Package streamworker bridges a controlling caller and a long-running
// background computation with bidirectional streams of named messages.
//
// A Session pairs one Worker with two queues: an Inbox the controller pushes
// into and the worker pops from (blocking), and an Outbox the worker sends
// into and the session's dispatcher drains. Callbacks registered with
// OnMessage, OnComplete, and OnError run on the dispatcher goroutine, never
// on the worker's, so the caller observes messages in send order followed by
// exactly one terminal signal.
//
//	sess, err := streamworker.New(workers.NewAccumulator, streamworker.Options{"name": "n"})
//	if err != nil {
//		return err
//	}
//	sess.OnMessage(func(m streamworker.Message) { fmt.Println(m.Name, m.Data) })
//	sess.OnError(func(err error) { log.Println("worker failed:", err) })
//	if err := sess.Start(); err != nil {
//		return err
//	}
//	sess.Push(streamworker.Message{Name: "n", Data: "1"})
//	sess.Push(streamworker.Message{Name: "n", Data: "2"})
//	sess.Push(streamworker.Message{Name: "n", Data: "-1"})
//	err = sess.Wait(ctx)
//
// Emitter and Stream layer name-keyed callbacks and channel consumption over
// the same session; Registry holds named factories for daemons that create
// sessions on demand.
package streamworker
