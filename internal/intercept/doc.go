// Package intercept mutates outgoing browser requests before they leave the
// driver: stripping cookies by classification and spoofing the Referer
// header on programmatic navigations.
//
// Interceptors are plain functions over model.Request so they compose; the
// driver invokes the installed hook for every request a page makes,
// including sub-resources, so every interceptor must be cheap and must
// tolerate requests it has nothing to do with.
package intercept
