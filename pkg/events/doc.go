/*
Package events carries the normalized event stream that drives Ferry.

Upstream queue plumbing is external; whatever ingress is in use feeds
normalized Events into the Broker, and a ListenerPool per entity type
(Submission, Deposit) consumes them with a bounded worker count.

Events whose payload attributes the change to Ferry's own user agent
are dropped on ingress so the engine never reacts to its own writes.
*/
package events
