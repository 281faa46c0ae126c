package testutil

import (
	"syreclabs.com/go/faker"
)

// RandomUsername returns a username within the accepted length bounds
func RandomUsername() string {
	return "u" + faker.RandomString(9)
}

// RandomRoomName returns a human-looking room name
func RandomRoomName() string {
	return "Room " + faker.Name().LastName()
}

// RandomPassword returns a password within the accepted length bounds
func RandomPassword() string {
	return faker.RandomString(12)
}
