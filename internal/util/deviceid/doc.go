// Package deviceid generates and names simulated device identifiers.
//
// Simulated devices use MAC-style ids whose first three octets are the
// fixed marker "ZZ:ZZ:ZZ", which can never collide with a real vendor
// prefix. The remaining three octets are random upper-case hex.
package deviceid
