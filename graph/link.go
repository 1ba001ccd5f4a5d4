package graph

// Link is one resolved edge: an audio-out port feeding an audio-in port
// (control ports cannot be linked). Both ends belong to an instance-0 view of
// their node; replication (one link becomes N parallel links, one per
// instance) happens when the schedule is built, not here.
type Link struct {
	Output *Port
	Input  *Port
}
