// Package link moves bytes from a continuously running receiver to a
// per-link worker that decodes them.
//
// Each Link owns two receive buffers. The receiver goroutine only ever
// writes the active buffer; a filled buffer is handed to the worker as a
// HandOff and swapped out. Only one HandOff exists per link at a time: if
// the worker has not released the previous one when the active buffer
// fills again, the active buffer is reused and its content dropped. The
// receiver never waits for the worker.
package link
