package cgi

import (
	"context"
	"sync"
)

type fakeReply struct {
	status int
	body   string
	err    error
}

// fakeTransport replays canned replies keyed by "<path> <action>" and
// records every request. The last reply of a route is repeated once its
// queue is drained.
type fakeTransport struct {
	mu       sync.Mutex
	replies  map[string][]fakeReply
	requests []*Request
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{replies: make(map[string][]fakeReply)}
}

func (f *fakeTransport) on(path, action string, status int, body string) *fakeTransport {
	key := path + " " + action
	f.replies[key] = append(f.replies[key], fakeReply{status: status, body: body})
	return f
}

func (f *fakeTransport) fail(path, action string, err error) *fakeTransport {
	key := path + " " + action
	f.replies[key] = append(f.replies[key], fakeReply{err: err})
	return f
}

func (f *fakeTransport) Do(_ context.Context, req *Request) (*Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	key := req.Path + " " + req.Params.Get("action")
	queue := f.replies[key]
	if len(queue) == 0 {
		return &Reply{StatusCode: 404, Body: []byte(req.Path + " is not defined")}, nil
	}
	r := queue[0]
	if len(queue) > 1 {
		f.replies[key] = queue[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &Reply{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func (f *fakeTransport) last() *Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeTransport) count(path, action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Path == path && r.Params.Get("action") == action {
			n++
		}
	}
	return n
}
