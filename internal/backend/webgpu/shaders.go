//go:build windows

package webgpu

// workgroupSize is the number of threads per workgroup in every shader.
const workgroupSize = 256

// adamShader applies one adaptive-moment step in place.
// denom == 0 drops the velocity denominator, which turns the rule into
// plain momentum SGD.
const adamShader = `
struct Params {
    size: u32,
    beta1: f32,
    beta2: f32,
    gradient_factor: f32,
    learning_rate: f32,
    denom: u32,
    _pad0: u32,
    _pad1: u32,
}

@group(0) @binding(0) var<storage, read_write> weights: array<f32>;
@group(0) @binding(1) var<storage, read> gradient: array<f32>;
@group(0) @binding(2) var<storage, read_write> momentum: array<f32>;
@group(0) @binding(3) var<storage, read_write> velocity: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.size) {
        return;
    }
    let g = params.gradient_factor * gradient[idx];
    let m = params.beta1 * momentum[idx] + (1.0 - params.beta1) * g;
    let v = params.beta2 * velocity[idx] + (1.0 - params.beta2) * g * g;
    momentum[idx] = m;
    velocity[idx] = v;

    var update = m;
    if (params.denom != 0u) {
        update = m / (sqrt(v) + 0.00000001);
    }
    weights[idx] = weights[idx] - params.learning_rate * update;
}
`

// clipShader clamps values to [lo, hi].
const clipShader = `
struct Params {
    size: u32,
    lo: f32,
    hi: f32,
    _pad0: u32,
}

@group(0) @binding(0) var<storage, read_write> values: array<f32>;
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        values[idx] = clamp(values[idx], params.lo, params.hi);
    }
}
`

// scaleShader multiplies values by alpha.
const scaleShader = `
struct Params {
    size: u32,
    alpha: f32,
    _pad0: u32,
    _pad1: u32,
}

@group(0) @binding(0) var<storage, read_write> values: array<f32>;
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        values[idx] = values[idx] * params.alpha;
    }
}
`
