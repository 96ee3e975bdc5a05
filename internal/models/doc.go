// package models defines the provider-independent data model for playlist transfers.
package models
