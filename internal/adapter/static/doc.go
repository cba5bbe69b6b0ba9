// Package static serves the broadcaster directory from a YAML file.
//
// The file is read once at startup and reloaded when it changes on disk.
// Webhook URLs may reference environment variables (${SPACEDRIVE_WEBHOOK_URL})
// so secrets stay out of the file. The directory is read-only.
package static
