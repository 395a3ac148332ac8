package types

// RoomInfo is a point-in-time view of a room used by the read-only
// reporting endpoints. Users are listed in join order.
type RoomInfo struct {
	Name      string   `json:"name"`
	UserCount int      `json:"userCount"`
	Users     []string `json:"users"`
}
