// Package integrationtests runs whole workflows through the HTTP API with
// real processes and a real file tree.
package integrationtests
