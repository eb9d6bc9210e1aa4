// File: core/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event loops and event loop groups backing api.EventLoop. Each loop is one
// goroutine processing a FIFO task queue; groups spread work across loops
// round robin and can pin loop threads to CPUs.
package concurrency
