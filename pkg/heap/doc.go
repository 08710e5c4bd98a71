// Package heap builds the gateway's request pipeline from a declarative
// YAML document.
//
// A document names one terminal handler and the filters placed in front
// of it. The first filter sees the request first:
//
//	handler:
//	  type: ClientHandler
//	  config:
//	    baseURL: https://api.internal:8443
//	    timeout: 10 seconds
//	filters:
//	  - name: auth
//	    type: TokenFilter
//	    config:
//	      realm: api
//	      maxLifetime: 5 minutes
//	  - name: responses
//	    type: CacheFilter
//	    config:
//	      defaultTimeout: 30 seconds
//	  - name: greeting
//	    type: HeaderFilter
//	    config:
//	      name: X-Greeting
//	      value: Hello world
//
// Types resolve through a [Registry]. [DefaultRegistry] holds the
// built-in ones; applications add their own with RegisterFilter and
// RegisterHandler:
//
//	reg := heap.DefaultRegistry(heap.Deps{Scheduler: sched, Logger: log})
//	doc, err := heap.Parse(data)
//	if err != nil {
//		return err
//	}
//	h, err := reg.Build(doc)
//
// Each CacheFilter and TokenFilter owns its own cache. Build errors name
// the offending object.
package heap
