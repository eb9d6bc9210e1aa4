// Package pool
// Author: momentics <momentics@gmail.com>
//
// Connection pooling with scoped acquisition. A ConnectionPool hands out
// idle connections LIFO, creates new ones on demand through an
// api.ChannelFactory, and is itself a client.Client so it can be decorated
// like a single connection.
package pool
