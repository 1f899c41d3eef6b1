package pipeline

// payloadPath is the pseudo-path the built-in stubs publish under. Payload
// locations render with a #L<line> anchor instead of a workspace URI.
const payloadPath = "payload.rb"

// payloadSource declares the core classes every model starts with. The
// stubs carry annotated signatures so call checking has ground truth;
// bodies are empty.
const payloadSource = `class Object
  def to_s -> String; end
  def inspect -> String; end
end
class NilClass
  def to_s -> String; end
end
class Boolean
  def to_s -> String; end
end
class Integer
  def +(other: Integer) -> Integer; end
  def -(other: Integer) -> Integer; end
  def *(other: Integer) -> Integer; end
  def /(other: Integer) -> Integer; end
  def <(other: Integer) -> Boolean; end
  def >(other: Integer) -> Boolean; end
  def ==(other: Integer) -> Boolean; end
  def to_s -> String; end
end
class Float
  def +(other: Float) -> Float; end
  def -(other: Float) -> Float; end
  def to_s -> String; end
end
class String
  def +(other: String) -> String; end
  def *(count: Integer) -> String; end
  def ==(other: String) -> Boolean; end
  def length -> Integer; end
  def to_s -> String; end
end
`
