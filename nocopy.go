package coresem

// noCopy marks kernel objects that must not be copied after first
// use. go vet's copylocks check recognizes any type with Lock and
// Unlock methods, so embedding it is enough to flag copies of a
// Semaphore, ThreadQueue or QueueContext.
type noCopy struct{}

// Lock is a no-op used only by go vet.
func (*noCopy) Lock() {}

// Unlock is a no-op used only by go vet.
func (*noCopy) Unlock() {}
