// Package xdr provides generic XDR (External Data Representation) decoding
// utilities per RFC 4506, used to dissect SunRPC/NFSv4 wire bytes.
//
// This is a read-only decoder: the inspection core never emits replies, so
// no encode half is provided. XDR is big-endian and 4-byte aligned;
// variable-length data is preceded by a 4-byte length and padded to the next
// 4-byte boundary.
//
// This package has no dependencies on other protoscan packages (no logger,
// no transaction types) so it can be shared by every wire parser that rides
// on XDR.
//
// Reference: RFC 4506 - XDR: External Data Representation Standard
// https://tools.ietf.org/html/rfc4506
package xdr
