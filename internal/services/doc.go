// package services contains HTTP clients for the remote catalog and the auth API
//
// [CatalogService] backs search and stream resolution; [AuthService] is the identity provider.
package services
