// Package main provides the entry point of sk-portal, the web portal of a
// Sangguniang Kabataan city federation. It serves announcements with
// one-vote-per-user polls, events with registration, news, barangay profiles
// and their officials, legislative documents and notifications. Every change
// goes through a fixed role and permission table; moderators are limited to
// the barangay they are assigned to.
package main
