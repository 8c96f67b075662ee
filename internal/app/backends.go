package app

import (
	"github.com/vk/tandemgrid/backends/httpcheck"
	"github.com/vk/tandemgrid/backends/localexec"
	"github.com/vk/tandemgrid/backends/socketio"
	"github.com/vk/tandemgrid/backends/static"
	"github.com/vk/tandemgrid/internal/backend"
)

// coreBackends is the definitive set of backends compiled into the tandemgrid
// binary. Two static instances are registered so the redundant and consensus
// policies have something to race and to agree on out of the box.
func coreBackends() []backend.Backend {
	return []backend.Backend{
		static.New("static"),
		static.New("mirror"),
		localexec.New("exec"),
		httpcheck.New("http", nil),
		socketio.New("socketio"),
	}
}
