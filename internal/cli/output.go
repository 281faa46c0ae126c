package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case AuthResult:
		o.printAuthResult(v)
	case []User:
		o.printUsers(v)
	case Profile:
		o.printProfile(v)
	case Room:
		o.printRoom(v)
	case []Room:
		o.printRooms(v)
	case RoomAction:
		fmt.Println(v.Message)
		o.printRoom(v.Room)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// UserSummary response type (matches API)
type UserSummary struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// User response type
type User struct {
	ID          uint64  `json:"id"`
	Username    string  `json:"username"`
	MobileToken *string `json:"mobile_token,omitempty"`
}

// RoomRef is the short room form on a profile
type RoomRef struct {
	GUID     string `json:"guid"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Profile response type
type Profile struct {
	User
	HostedRooms []RoomRef `json:"hosted_rooms"`
	JoinedRooms []RoomRef `json:"joined_rooms"`
}

// AuthResult is returned by login and signup
type AuthResult struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Room response type
type Room struct {
	ID           uint64        `json:"id"`
	GUID         string        `json:"guid"`
	Name         string        `json:"name"`
	Capacity     int           `json:"capacity"`
	Host         UserSummary   `json:"host"`
	Participants []UserSummary `json:"participants"`
}

// RoomAction is returned by join, leave and change-host
type RoomAction struct {
	Message string `json:"message"`
	Room    Room   `json:"room"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printAuthResult(a AuthResult) {
	if a.Message != "" {
		fmt.Println(a.Message)
	}
	fmt.Printf("User: %s\n", a.Username)
	if a.ExpiresAt != "" {
		fmt.Printf("Expires: %s\n", a.ExpiresAt)
	}
	fmt.Printf("Token: %s\n", a.Token)
}

func (o *Output) printUsers(users []User) {
	if len(users) == 0 {
		fmt.Println("No users")
		return
	}
	for _, u := range users {
		fmt.Printf("%d\t%s\n", u.ID, u.Username)
	}
}

func (o *Output) printProfile(p Profile) {
	fmt.Printf("User: %s (%d)\n", p.Username, p.ID)
	if p.MobileToken != nil {
		fmt.Printf("Mobile token: %s\n", *p.MobileToken)
	}
	printRoomRefs("Hosting", p.HostedRooms)
	printRoomRefs("Joined", p.JoinedRooms)
}

func printRoomRefs(label string, rooms []RoomRef) {
	fmt.Printf("%s (%d):\n", label, len(rooms))
	for _, r := range rooms {
		fmt.Printf("  - %s %s (capacity %d)\n", r.GUID, r.Name, r.Capacity)
	}
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s (%s)\n", r.Name, r.GUID)
	fmt.Printf("Host: %s\n", r.Host.Username)
	names := make([]string, len(r.Participants))
	for i, p := range r.Participants {
		names[i] = p.Username
	}
	fmt.Printf("Participants (%d/%d): %s\n", len(r.Participants), r.Capacity, strings.Join(names, ", "))
}

func (o *Output) printRooms(rooms []Room) {
	if len(rooms) == 0 {
		fmt.Println("No rooms")
		return
	}
	for _, r := range rooms {
		fmt.Printf("%s\t%s\t%d/%d\thost=%s\n", r.GUID, r.Name, len(r.Participants), r.Capacity, r.Host.Username)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
