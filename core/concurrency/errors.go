// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "github.com/momentics/hioload-ctx/api"

// ErrEventLoopClosed indicates the loop has been shut down.
var ErrEventLoopClosed = api.ErrEventLoopClosed
