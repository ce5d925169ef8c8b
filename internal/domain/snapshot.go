package domain

// Edge is an undirected friendship, stored with A < B.
type Edge struct {
	A UserID
	B UserID
}

// UserSnapshot summarises a user's state at the end of a run.
type UserSnapshot struct {
	ID               UserID
	Friends          int
	OwnPurchases     int
	NetworkPurchases int
	NetworkMean      float64
	NetworkStdDev    float64
}
