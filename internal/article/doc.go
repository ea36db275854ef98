// Package article defines the article domain: the persisted record, the typed
// commands executed by workers, the error taxonomy shared by stores and HTTP
// handlers, and the interfaces other packages implement.
package article
