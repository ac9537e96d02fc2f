// Package stream provides byte stream and message buffers for
// single-reader, single-writer pipelines.
//
// A Buffer carries an unstructured byte stream. Sends append and
// receives drain; a receiver blocks until the buffer holds at least
// its trigger level of bytes, then takes as much as its destination
// holds. Both directions return byte counts, and a timed-out send
// reports the partial count it managed to write.
//
// A MessageBuffer carries discrete variable-length messages. A send
// is all-or-nothing and a receive always yields one whole message;
// a destination smaller than the next message receives nothing and
// leaves the message in place.
//
// Unlike queues and ring buffers, stream objects are not wait-set
// members. They assume one concurrent reader and one concurrent
// writer; the counts they return are only stable under that regime.
package stream
