// Package upspb contains the messages exchanged with the carrier (UPS).
//
// AmazonToUPS and UPSToAmazon are the batch envelopes; every sub-item carries its
// own sequence number and both envelopes carry a repeated list of acks.
package upspb
