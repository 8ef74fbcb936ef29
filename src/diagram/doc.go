// Package diagram keeps the local view a site has of its neighbourhood.
//
// An Index binds site identities to the vertices of a triangulation and
// serialises access to it. A Controller sits on top of an Index on behalf of
// one originating site and exposes the operations the protocol driver
// applies when it learns about other sites: AddRemote, DelRemote,
// DelIrrelevantSites and MoveLocal.
package diagram
