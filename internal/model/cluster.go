package model

// ClusterAssignment places one resolved record into a comment pattern
// cluster. Assignments exist only after a clustering phase has run over the
// full batch of resolved embeddings, and are recomputed from scratch each
// run.
type ClusterAssignment struct {
	OrderID  string
	Distance float64
	Cluster  int
}

// Pattern is a recurring resolution pattern derived from one cluster: the
// member comment nearest the centroid serves as a human-readable label.
type Pattern struct {
	Exemplar        string
	ExemplarOrderID string
	Cluster         int
	Size            int
}
